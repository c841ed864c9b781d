// Package config loads vstore scenario files.
//
// A scenario describes one store: its initial state, the bindings that
// consume it and a list of steps to run against it. The replay command runs
// the steps; the serve command starts the devtools server over the initial
// state.
//
//	name: cart
//	state:
//	  text: a
//	  num: 1
//	bindings:
//	  - name: x
//	    protocol: immediate
//	    reads: [$.text]
//	  - name: z
//	    protocol: deferred
//	    delay: 1s
//	    reads: [$.num]
//	steps:
//	  - set: {path: $.num, value: 2}
//	  - wait: 1s
//	devtools:
//	  addr: 127.0.0.1:7070
//
// Load returns a validated Config with defaults applied. Errors are
// *errors.Error values that carry the offending field and, when known, its
// position in the file.
package config
