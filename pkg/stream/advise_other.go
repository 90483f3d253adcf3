//go:build !linux

package stream

import "os"

func adviseSequential(*os.File) {}
