// Package circuitbreaker isolates calls to unreliable upstream
// dependencies behind a closed/open/half-open state machine with a
// rolling failure window.
//
// One breaker instance guards one dependency class and is shared by
// all of its callers; detecting aggregate degradation is the point, so
// there is deliberately no per-call isolation.
package circuitbreaker
