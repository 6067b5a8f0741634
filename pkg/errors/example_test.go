package errors_test

import (
	"fmt"

	"github.com/DeBrosOfficial/hdsview/pkg/errors"
)

// Example demonstrates a directory that answered with a non-success status.
func ExampleNewConnectionError() {
	err := errors.NewConnectionError("https://example.org:27012", 503, nil)
	fmt.Println(err.Error())
	fmt.Println("HTTP Status:", errors.StatusCode(err))
	// Output:
	// directory https://example.org:27012 answered with HTTP 503
	// HTTP Status: 502
}

// Example demonstrates recording the directory's own error type.
func ExampleProtocolError_WithHDSType() {
	err := errors.NewProtocolError("topic lookup failed", nil).WithHDSType("hds.error.topic.missing")
	fmt.Println(err.Error())
	fmt.Println("Is protocol:", errors.IsProtocol(err))
	// Output:
	// topic lookup failed (hds.error.topic.missing)
	// Is protocol: true
}

// Example demonstrates wrapping errors with context.
func ExampleWrap() {
	original := errors.NewNotFoundError("topic", "chat")
	wrapped := errors.Wrap(original, "failed to fetch membership")

	fmt.Println(wrapped.Error())
	fmt.Println("Is NotFound:", errors.IsNotFound(wrapped))
	// Output:
	// failed to fetch membership: topic 'chat' not found
	// Is NotFound: true
}

// Example demonstrates checking if an error should be retried.
func ExampleShouldRetry() {
	connErr := errors.NewConnectionError("https://example.org:27012", 0, nil)
	protoErr := errors.NewProtocolError("not a directory", nil)

	fmt.Println("Connection should retry:", errors.ShouldRetry(connErr))
	fmt.Println("Protocol should retry:", errors.ShouldRetry(protoErr))
	// Output:
	// Connection should retry: true
	// Protocol should retry: false
}
