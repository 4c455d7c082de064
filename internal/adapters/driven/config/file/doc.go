// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage
//   - PromptStore: YAML prompt sets with an embedded frozen default
//   - LexiconStore: YAML fal sentence tables with an embedded default
package file
