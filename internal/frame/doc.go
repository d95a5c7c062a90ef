// Package frame defines the immutable still-frame record shared by the
// capture, comparison, and detection layers, along with the pic%05d.jpg
// naming convention used in the stills folder.
package frame
