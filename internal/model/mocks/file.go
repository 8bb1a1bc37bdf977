package mocks

import "io/fs"

// File allows mocking fs.File.
type File struct {
	MockStat  func() (fs.FileInfo, error)
	MockRead  func(b []byte) (int, error)
	MockClose func() error
}

var _ fs.File = &File{}

// Stat calls MockStat.
func (f *File) Stat() (fs.FileInfo, error) {
	return f.MockStat()
}

// Read calls MockRead.
func (f *File) Read(b []byte) (int, error) {
	return f.MockRead(b)
}

// Close calls MockClose.
func (f *File) Close() error {
	return f.MockClose()
}
