// Package channel defines the message protocol between the coordinator and
// its document views, and the per-view port that holds outbound messages
// until the view has announced it is loaded.
//
// Every message is a JSON object with an "event" discriminator. Views send
// Inbound messages; the coordinator answers with Colorize, Sync, Content and
// AnnotationSelected messages.
//
// A view and the coordinator race at startup. A Port is created pending and
// queues everything posted to it. The first "loaded" event flushes the queue
// in FIFO order, after which the port sends directly.
package channel
