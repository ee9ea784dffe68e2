// Package storage writes image files into the output directory.
//
// The Manager type owns a single output directory. Every file is written to a
// temporary name first and renamed into place, so an interrupted run never
// leaves a partially written image under its final name.
//
// Usage:
//
//	manager, err := storage.NewManager("./wallpapers")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	path, err := manager.Save("abc.jpg", data)
//	if err != nil {
//	    log.Printf("Failed to save image: %v", err)
//	}
package storage
