// Package conf loads the settings of the user-data handler itself: where
// the router configuration lives, where the templates are, and how to log
// and fetch.
//
// # Usage
//
//	cs := &conf.ConfigSource{
//	    Path:      conf.DefaultPath,
//	    DropInDir: conf.DefaultDropInDir,
//	}
//	config, err := cs.Read()
//
// # Load Order
//
//  1. Embedded defaults (default.toml)
//  2. Main file: /etc/vyos-userdata/config.toml
//  3. Drop-in files: /etc/vyos-userdata/config.toml.d/*.toml, in lexicographic order
//
// Each layer is parsed into configDTO, whose pointer fields distinguish
// "not set" from "set to zero value", and applied with Config.Update.
package conf
