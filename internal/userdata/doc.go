// Package userdata applies cloud-init user-data to a VyOS configuration.
//
// A payload is one of:
//
//   - a full configuration in config.boot syntax, which replaces the
//     configuration file as is;
//   - a list of "set <path> ['<value>']" commands, applied one by one to
//     the loaded configuration, which is then written back;
//   - an http:// or https:// URL of a payload of either kind.
//
// Commands only carry paths, so tag nodes (nodes whose children are named
// instances such as "interfaces ethernet") are recognised by matching each
// applied path against the template tree, where every tag node is a
// directory holding a "node.tag" entry.
//
// The handler is best effort. Any failure is logged and reported in
// Result, and the remaining work carries on; a command list may therefore
// be applied partially.
package userdata
