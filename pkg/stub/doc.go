// Package stub is an in-memory stand-in for the experimentation service.
//
// Store implements simpleab.Transport directly, which makes it a drop-in fake
// for unit tests:
//
//	store := stub.NewStore(def)
//	client := simpleab.New(store)
//
// Handler serves the same data over the HTTP protocol spoken by pkg/transport,
// and Server runs it with graceful shutdown. Fixture files in YAML describe
// experiments and per-IP segments:
//
//	experiments:
//	  - id: checkout-button
//	    allocationRandomizationToken: alloc-1
//	    exposureRandomizationToken: expo-1
//	    treatments: [{id: Control}, {id: T1}]
//	    stages:
//	      - stage: Beta
//	        stageDimensions:
//	          - dimension: default
//	            enabled: true
//	            exposure: 100
//	            treatmentAllocations:
//	              - {id: Control, allocation: 50}
//	              - {id: T1, allocation: 50}
//	segments:
//	  203.0.113.7: {countryCode: US, region: CA, deviceType: mobile}
//	defaultSegment: {countryCode: ZZ, region: "", deviceType: ""}
//
// Store keeps every accepted batch and the running totals per metric key so
// tests and local tooling can inspect what a client flushed.
package stub
