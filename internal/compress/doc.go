// Package compress decompresses the zstd payloads hosts send for clipboard
// text and cursor images, bounding the output size by the input size.
package compress
