//////////////////////////////////////////////////////////////////////////////
//
// Stub for operating systems without posix_fadvise.
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

//go:build !linux
// +build !linux

package filesrc

import "os"

func adviseSequential(f *os.File) error {
	return nil
}
