// Package definition loads workflow definitions from YAML.
//
// A document names the workflow and lists its top-level steps. Each step
// has a kind (action, sequence, if, parallel, foreach, while, dowhile,
// retry, try, subworkflow, delay, timeout, abort) and kind-specific
// fields. Behaviour is never written in YAML: actions, predicates and
// item sources are referenced by name and resolved against a [Registry]
// populated in Go.
//
//	name: process-order
//	version: 2
//	compensation: true
//	steps:
//	  - name: reserve
//	    action: reserve-stock
//	    compensate: release-stock
//	  - name: charge
//	    kind: retry
//	    attempts: 3
//	    backoff: exponential:100ms:2s
//	    steps:
//	      - name: call-gateway
//	        action: charge-card
//	  - name: ship
//	    kind: if
//	    when: in-stock
//	    then:
//	      - name: dispatch
//	        action: create-shipment
//
// Every problem found while compiling a document is reported, joined, and
// wrapped in stepflow.ErrInvalidDefinition.
package definition
