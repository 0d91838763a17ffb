// Package cbz reads and writes comic book archives: standard zip containers
// holding sequentially named page images.
package cbz
