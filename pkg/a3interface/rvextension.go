package a3interface

/*
#include <stdlib.h>
#include <stdio.h>
#include <string.h>
*/
import "C"
import (
	"fmt"
	"time"
	"unsafe"

	"github.com/geoshape/extension/internal/dispatcher"
)

// Config defines how calls to this extension will be handled
var Config configStruct = configStruct{}

func init() {
	Config.Init()
}

// called by the host to get the version of the extension
//
//export RVExtensionVersion
func RVExtensionVersion(output *C.char, outputsize C.size_t) {
	result := Config.rvExtensionVersion
	replyToSyncCall(result, output, outputsize)
}

// called by the host in the format of: "extensionName" callExtension "command|arg|arg"
//
//export RVExtension
func RVExtension(output *C.char, outputsize C.size_t, input *C.char) {
	replyToSyncCall(Call(C.GoString(input)), output, outputsize)
}

// called by the host in the format of: "extensionName" callExtension ["command", ["data"]]
//
//export RVExtensionArgs
func RVExtensionArgs(output *C.char, outputsize C.size_t, input *C.char, argv **C.char, argc C.int) {
	command := C.GoString(input)
	args := parseArgsFromC(argv, argc)

	replyToSyncCall(dispatch(command, args), output, outputsize)
}

// Call handles a plain "command|arg|arg" call the way RVExtension does and
// returns the response.
func Call(input string) string {
	command, args := splitCommand(input)

	// Handle built-in timestamp command
	if command == ":TIMESTAMP:" {
		return getTimestamp()
	}
	return dispatch(command, args)
}

func dispatch(command string, args []string) string {
	d := Config.dispatcher
	if d == nil || !d.HasHandler(command) {
		return errorResponse(fmt.Sprintf("%s: no handler registered", command))
	}

	result, err := d.Dispatch(dispatcher.Event{
		Command:   command,
		Args:      args,
		Timestamp: time.Now(),
	})
	if err != nil && Config.errChan != nil {
		select {
		case Config.errChan <- []string{command, err.Error()}:
		default:
		}
	}
	return formatDispatchResponse(command, result, err)
}

// parseArgsFromC converts C argv array to Go string slice
func parseArgsFromC(argv **C.char, argc C.int) []string {
	var offset = unsafe.Sizeof(uintptr(0))
	var data []string
	for index := C.int(0); index < argc; index++ {
		data = append(data, C.GoString(*argv))
		argv = (**C.char)(unsafe.Pointer(uintptr(unsafe.Pointer(argv)) + offset))
	}
	return data
}

// replyToSyncCall copies response into the host's output buffer, truncating
// it to outputsize.
func replyToSyncCall(response string, output *C.char, outputsize C.size_t) {
	result := C.CString(response)
	defer C.free(unsafe.Pointer(result))
	var size = C.strlen(result) + 1
	if size > outputsize {
		size = outputsize
	}
	C.memmove(unsafe.Pointer(output), unsafe.Pointer(result), size)
}

func getTimestamp() string {
	return fmt.Sprintf("%d", time.Now().UTC().UnixNano())
}
