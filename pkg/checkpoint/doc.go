// Package checkpoint remembers in-flight scrape runs started from the CLI.
//
// A run keeps going on the scraping service after the local process stops.
// Recording its handle lets `goingviral fetch --resume` re-attach to the
// same run and collect its dataset instead of launching a new paid run.
//
// Checkpoints are stored in platform-specific data directories unless
// fetch.checkpoint_dir is set:
//   - Linux: ~/.local/share/goingviral/checkpoints/
//   - macOS: ~/Library/Application Support/goingviral/checkpoints/
//   - Windows: %APPDATA%/goingviral/checkpoints/
//
// Files are written through a temporary file and rename.
package checkpoint
