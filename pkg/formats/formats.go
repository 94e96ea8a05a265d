// Package formats provides binary codecs for persisted terrain data.
package formats

// Note: region tiles (height, control and color layers of one region) are
// implemented in region.go.
