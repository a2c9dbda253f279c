// Package textutil turns value and identifier names into safe file names.
package textutil
