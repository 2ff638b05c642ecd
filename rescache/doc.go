// Package rescache provides a generic memory-pressure-aware layered
// cache: a cost-bounded ristretto tier in process, with an optional
// Redis tier behind it. Long-lived processes use it to hold
// request-adjacent resources (user profile snapshots, derived
// artifacts) without unbounded growth.
package rescache
