//go:build !unix

package imaging

func syncFilesystems() {}
