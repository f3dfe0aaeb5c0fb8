//go:build js && wasm
// +build js,wasm

package main

import (
	"errors"
	"fmt"
	"syscall/js"

	"github.com/himanishpuri/acousticmatch/pkg/acousticmatch/fingerprint"
	"github.com/himanishpuri/acousticmatch/pkg/models"
)

// Error codes returned to JavaScript
const (
	ErrorNone = iota
	ErrorInvalidArgs
	ErrorDecodeFailed
	ErrorUnsorted
)

// acousticmatchDecode decodes a code string for the debug page.
// Returns: {error: number, data: {codes: [], times: []} | string}
func acousticmatchDecode(this js.Value, args []js.Value) any {
	if len(args) < 1 || args[0].Type() != js.TypeString {
		return makeErrorResponse(ErrorInvalidArgs, "Expected 1 argument: code string")
	}

	fp, errResp, ok := decode(args[0].String())
	if !ok {
		return errResp
	}
	return makeFingerprintResponse(fp)
}

// acousticmatchClamp decodes a code string and keeps the first seconds of it,
// the way a query is trimmed before matching.
func acousticmatchClamp(this js.Value, args []js.Value) any {
	if len(args) < 2 || args[0].Type() != js.TypeString {
		return makeErrorResponse(ErrorInvalidArgs, "Expected 2 arguments: code string, seconds")
	}
	if args[1].Type() != js.TypeNumber {
		return makeErrorResponse(ErrorInvalidArgs, "seconds must be a number")
	}

	fp, errResp, ok := decode(args[0].String())
	if !ok {
		return errResp
	}
	return makeFingerprintResponse(fingerprint.ClampLength(fp, args[1].Float()))
}

func decode(code string) (models.Fingerprint, js.Value, bool) {
	fp, err := fingerprint.Decode(code)
	if err != nil {
		if errors.Is(err, fingerprint.ErrInvalidFingerprint) {
			return fp, makeErrorResponse(ErrorUnsorted, err.Error()), false
		}
		return fp, makeErrorResponse(ErrorDecodeFailed, fmt.Sprintf("Failed to decode code string: %v", err)), false
	}
	return fp, js.Value{}, true
}

func makeFingerprintResponse(fp models.Fingerprint) js.Value {
	codes := js.Global().Get("Array").New(fp.Len())
	times := js.Global().Get("Array").New(fp.Len())
	for i := range fp.Codes {
		codes.SetIndex(i, fp.Codes[i])
		times.SetIndex(i, fp.Times[i])
	}

	data := js.Global().Get("Object").New()
	data.Set("codes", codes)
	data.Set("times", times)

	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("data", data)
	return result
}

func makeErrorResponse(errorCode int, message string) js.Value {
	result := js.Global().Get("Object").New()
	result.Set("error", errorCode)
	result.Set("data", message)
	return result
}

func main() {
	console := js.Global().Get("console")
	logf := func(method, msg string) {
		if !console.IsUndefined() {
			console.Call(method, msg)
		}
	}

	done := make(chan struct{})

	js.Global().Set("acousticmatchDecode", js.FuncOf(acousticmatchDecode))
	js.Global().Set("acousticmatchClamp", js.FuncOf(acousticmatchClamp))
	logf("log", "acousticmatch WASM functions registered")

	window := js.Global().Get("window")
	if window.IsUndefined() {
		logf("error", "window object is undefined")
	} else {
		event := js.Global().Get("CustomEvent").New("wasmReady", js.Global().Get("Object").New())
		window.Call("dispatchEvent", event)
	}

	<-done
}
