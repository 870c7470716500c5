// Package outbound buffers messages produced by user actions and drains
// them to the session transport on a fixed tick, in submission order.
package outbound
