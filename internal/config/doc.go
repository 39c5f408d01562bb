// Package config defines the format-agnostic catalogue model, along with the
// Loader interface for reading a catalogue from a concrete format.
//
// A Catalogue is the declared replacement for discovering submodules by
// inspecting a live runtime: it lists every submodule with its source file,
// export list and internal names, the rewrite allow-list, and the alias
// policy. Concrete loaders (YAML in the manifest package, HCL in
// hcl_adapter) live in separate packages.
package config
