// Package tracing wraps OpenTelemetry so the kernel and its services can
// open spans around lifecycle operations without importing the SDK.
// Until Init is called spans are no-ops.
package tracing
