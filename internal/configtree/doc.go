// Package configtree holds a router configuration as a tree of named nodes
// and reads and writes it in config.boot syntax.
//
// Containers hold child nodes, leaves hold zero or more values. A tag node
// is a container whose children are user named instances, for example
// each interface under "interfaces ethernet"; it is rendered one instance
// per block:
//
//	interfaces {
//	    ethernet eth0 {
//	        address 192.0.2.1/24
//	    }
//	}
//
// Whether a node is a tag node is not derivable from the path alone. The
// parser infers it from the two-word block header; callers that build a
// tree from set commands mark tag nodes explicitly with SetTag.
package configtree
