// Package hysteresis provides the sliding-window voting primitive behind
// print start, stop, and final-confirmation detection.
//
// The detector instantiates one Tracker per phase with its own capacity and
// rule; a transition is only committed after the rule holds across the whole
// window, trading a few poll intervals of latency for immunity to vibration,
// lighting flicker, and other single-frame noise.
package hysteresis
