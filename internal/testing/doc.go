// Package testing provides test utilities, builders, and fakes shared by the
// package tests.
//
// This package centralizes common testing patterns to avoid duplication across test files:
//   - ClusterBuilder: Fluent builder for cluster records
//   - MockPlugin: testify mock of provisioning.Plugin
//   - FakeSubstrate: in-memory platform.Substrate with failure injection
//
// Usage:
//
//	cluster := testing.NewClusterBuilder().
//	    WithName("demo").
//	    WithNodeGroup("workers", "cpx21", 2, "worker").
//	    Build()
//
//	substrate := testing.NewFakeSubstrate()
//	substrate.FailCreate("demo-workers-2", errors.New("quota exceeded"))
package testing
