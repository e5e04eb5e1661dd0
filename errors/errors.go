package errors

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"runtime"
)

// Errorf is equavalent to fmt.Errorf
var Errorf = fmt.Errorf

// New is equavalent to errors.New
var New = errors.New

// As is equavalent to errors.As
var As = errors.As

// E builds an error value from its arguments.
// There must be at least one argument or E panics.
// The type of each argument determines its meaning.
// If more than one argument of a given type is presented,
// only the last one is recorded.
//
// The types are:
//
//	errors.Path:
//		The file being operated on
//	errors.Info:
//		Extra info useful to this class of error, think the
//		command line of a failed ffmpeg invocation
//	errors.Op:
//		The operation being performed
//	string:
//		Treated as an error message and assigned to the
//		Err field after a call to errors.New
//	errors.Kind:
//		The class of error
//	error:
//		The underlying error that triggered this one
//
// If the error is printed, only those items that have been
// set to non-zero values will appear in the result.
//
// If Kind is not specified or Other, we set it to the Kind of
// the underlying error.
func E(args ...interface{}) error {
	if len(args) == 0 {
		panic("call to errors.E with no arguments")
	}

	e := &Error{}
	for _, arg := range args {
		switch arg := arg.(type) {
		case Kind:
			e.Kind = arg
		case Op:
			e.Op = arg
		case Path:
			e.Path = arg
		case Info:
			e.Info = arg
		case string:
			e.Err = errors.New(arg)
		case *Error:
			copy := *arg
			e.Err = &copy
		case error:
			e.Err = arg
		default:
			_, file, line, _ := runtime.Caller(1)
			log.Printf("errors.E: bad call from %s:%d: %v", file, line, args)
			return Errorf("unknown type %T, value %v in error call", arg, arg)
		}
	}

	prev, ok := e.Err.(*Error)
	if !ok {
		return e
	}

	// The previous error was also one of ours. Suppress duplications
	// so the message won't contain the same information twice
	if prev.Kind == e.Kind {
		prev.Kind = Other
	}
	if prev.Path == e.Path {
		prev.Path = ""
	}
	if prev.Info == e.Info {
		prev.Info = ""
	}
	// if this error has Kind unset or Other, pull up the inner one
	if e.Kind == Other {
		e.Kind = prev.Kind
		prev.Kind = Other
	}

	return e
}

// Select returns an *Error with the given Kind from the error given
func Select(kind Kind, err error) (*Error, bool) {
	e, ok := err.(*Error)
	if !ok {
		return nil, false
	}

	if e.Kind == kind {
		return e, true
	}
	if e.Err != nil {
		return Select(kind, e.Err)
	}

	return nil, false
}

// Is reports whether err is an *Error of the given kind
func Is(kind Kind, err error) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	if e.Kind != Other {
		return e.Kind == kind
	}
	if e.Err != nil {
		return Is(kind, e.Err)
	}
	return false
}

// KindOf returns the first Kind that isn't Other found in err, or Other
// if there is none
func KindOf(err error) Kind {
	e, ok := err.(*Error)
	if !ok {
		return Other
	}
	if e.Kind != Other {
		return e.Kind
	}
	if e.Err != nil {
		return KindOf(e.Err)
	}
	return Other
}

// Op is the operation that was being performed
type Op string

// Path is the filesystem path involved
type Path string

// Info is some extra information that can be included with an Error
type Info string

// Error is the type that implements the error interface.
// It contains a number of fields, each of different type.
// An Error value may leave some values unset.
type Error struct {
	Kind Kind
	Op   Op
	Path Path
	Info Info
	Err  error
}

func (e *Error) isZero() bool {
	return e == nil || *e == Error{}
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// pad appends s to the buffer if the buffer already contains data
func pad(b *bytes.Buffer, s string) {
	if b.Len() != 0 {
		b.WriteString(s)
	}
}

func (e *Error) Error() string {
	b := new(bytes.Buffer)

	if e.Op != "" {
		pad(b, ": ")
		b.WriteString(string(e.Op))
	}

	if e.Kind != 0 {
		pad(b, ": ")
		b.WriteString(e.Kind.String())
	}

	var hadPrevious bool
	infoPad := func() {
		if hadPrevious {
			pad(b, ", ")
		} else {
			pad(b, ": ")
		}
		hadPrevious = true
	}

	if e.Path != "" {
		infoPad()
		b.WriteString("Path<")
		b.WriteString(string(e.Path))
		b.WriteString(">")
	}

	if e.Info != "" {
		infoPad()
		b.WriteString("Info<")
		b.WriteString(string(e.Info))
		b.WriteString(">")
	}

	if e.Err != nil {
		// indent on new line if we're cascading non-empty Error
		if prev, ok := e.Err.(*Error); ok && !prev.isZero() {
			pad(b, Separator)
			b.WriteString(prev.Error())
		} else {
			pad(b, ": ")
			b.WriteString(e.Err.Error())
		}
	}

	if b.Len() == 0 {
		return "no error"
	}

	return b.String()
}

// Separator is the string used to separate nested errors. By
// default, to make errors easier on the eye, nested errors are
// indented on a new line. A caller may instead choose to keep each
// error on a single line by modifying the separator string, perhaps
// to ":: ".
var Separator = ":\n\t"

// Kind defines the kind of error this is
type Kind uint8

// Kinds of errors
//
// Do not reorder this list or remove items;
// New items must be added only to the end
const (
	Other           Kind = iota // Unclassified error
	InvalidArgument             // Invalid argument given to function
	ExternalTool                // External tool exited with a non-zero status
	PeakUnknown                 // Peak amplitude missing from analysis output
	ReplaceFailed               // Promoting the processed file failed
	InvalidOutput               // Processed file is not usable audio
	NotImplemented              // Generic error indicating something is not implemented
)

func (k Kind) String() string {
	switch k {
	case Other:
		return "other error"
	case InvalidArgument:
		return "invalid argument"
	case ExternalTool:
		return "external tool failed"
	case PeakUnknown:
		return "unable to determine peak amplitude"
	case ReplaceFailed:
		return "failed to replace file"
	case InvalidOutput:
		return "invalid output"
	case NotImplemented:
		return "not implemented"
	}

	return "unknown error kind"
}
