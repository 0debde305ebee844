// Package conv implements 2-D convolution as three operations that share one
// Context: Forward, BackwardData and BackwardFilter.
//
// Every operation follows the same sequence:
//
//  1. Select the strategy for the context's Algorithm. Unknown values abort.
//  2. Validate input, filter and output shapes against each other and against
//     the context's padding and stride.
//  3. Plan the workspace regions and check the workspace is large enough.
//  4. Clear the written tensor and run the strategy on the backend.
//  5. Synchronize the backend, then report the elapsed time if instrumented.
//
// Errors in steps 1 to 3 are handed to the context's FatalSink before they are
// returned. Nothing is written to any tensor when they occur.
//
// Two strategy families exist. Direct transposes the batch-major operands into
// channel-major workspace regions and runs one fused kernel for the whole batch.
// The GEMM family (GemmWithBLAS, GemmWithFused) unfolds one image at a time into a
// patch matrix and multiplies it with the filter; the two members differ only in
// the matrix-multiply implementation.
package conv
