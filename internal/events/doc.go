// Package events carries pipeline events from worker goroutines to the presentation layer.
//
// Workers [Channel.Publish] typed events; the coordination goroutine drains them on a fixed
// tick with [Channel.Drain]. Publishing never blocks and never drops, and events are
// delivered in publish order. Each [Event] reports its [Kind], whose string form is the
// stable name used in logs and by the headless printer.
package events
