// Package eventbus is the topic-less fan-out described in SPEC_FULL.md
// §4.8: subscribers register a bounded inbox, and a slow subscriber only
// loses its own oldest pending event rather than blocking the publisher or
// affecting anyone else.
package eventbus
