// Package retry provides exponential backoff retry logic for transient failures.
//
// [Do] retries an operation with configurable max attempts, initial delay
// and maximum delay. Substrate adapters wrap every API call with it and
// mark non-retryable failures with [Fatal].
package retry
