// Package delivery sends event envelopes to the Monger service.
//
// A Pipeline generates one correlation id per call, merges it with the caller
// identity into the envelope and posts the same body up to MaxAttempts times
// without delay. Each reply is classified by Interpret:
//
//	{"status": true}                        Success
//	{"status": false, "message": "reason"}  ApplicationFailure("reason")
//	anything else                           ApplicationFailure("Unexpected behaviour")
//
// Transport errors count as failed attempts too. Delivery never returns an
// error: the outcome is logged and handed to an optional Observer.
package delivery
