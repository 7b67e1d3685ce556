// Package async provides utilities for parallel task execution with
// error collection.
//
// [RunParallel] executes tasks concurrently and joins every error. It is
// used by the instance manager to create and delete servers in parallel.
package async
