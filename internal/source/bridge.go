package source

import (
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/lanikai/alohasrc/internal/element"
)

const propURI uint = 1

// The hooks installed for every backend type. They find the backend through the
// descriptor of the instance's type and the Source kept in its instance slot.
func bridgeTypeInfo() *element.TypeInfo {
	return &element.TypeInfo{
		ClassInit:    classInit,
		InstanceInit: instanceInit,
		Finalize:     finalize,
		SetProperty:  setProperty,
		GetProperty:  getProperty,
		Start:        start,
		Stop:         stop,
		IsSeekable:   isSeekable,
		GetSize:      getSize,
		Fill:         fill,
		DoSeek:       doSeek,
	}
}

func classInit(class *element.Class) {
	d := mustLookup(class.Type())

	class.SetMetadata(d.longName, d.classification, d.description, d.author)
	class.AddPadTemplate(element.PadTemplate{
		Name:      "src",
		Direction: element.PadSrc,
		Presence:  element.PadAlways,
		Caps:      element.CapsAny,
	})
	class.InstallProperty(propURI, &element.ParamSpec{
		Name:  "uri",
		Nick:  "URI",
		Blurb: "URI to read from",
		Type:  element.ParamString,
		Flags: element.ParamReadWrite | element.ParamMutableReady,
	})
}

func instanceInit(src *element.BaseSrc, class *element.Class) {
	d := mustLookup(class.Type())

	log.Debug("Instantiating %s", src.Name())
	blocksize := d.blocksize
	if blocksize == 0 {
		blocksize = element.DefaultBlocksize
	}
	src.SetBlocksize(blocksize)
	src.SetInstance(d.factory(src))
}

func finalize(src *element.BaseSrc) {
	s := backend(src)
	src.SetInstance(nil)

	if err := s.Close(); err != nil {
		log.Warn("%s: close: %v", src.Name(), err)
	}
}

// backend returns the Source of an instance. Calls after finalize are a
// programming error.
func backend(src *element.BaseSrc) Source {
	s, ok := src.Instance().(Source)
	if !ok || s == nil {
		panic(fmt.Sprintf("source: %s has no backend (used after close?)", src.Name()))
	}
	return s
}

func setProperty(src *element.BaseSrc, id uint, value interface{}, pspec *element.ParamSpec) error {
	switch id {
	case propURI:
		uri, _ := value.(string)
		return setURIChecked(src, uri)
	default:
		log.Warn("%s: invalid property id %d (%s)", src.Name(), id, pspec.Name)
		return errors.Errorf("invalid property id %d", id)
	}
}

func getProperty(src *element.BaseSrc, id uint, pspec *element.ParamSpec) interface{} {
	switch id {
	case propURI:
		if uri, ok := getURI(src); ok {
			return uri
		}
		return nil
	default:
		log.Warn("%s: invalid property id %d (%s)", src.Name(), id, pspec.Name)
		return nil
	}
}

func start(src *element.BaseSrc) bool {
	if err := backend(src).Start(); err != nil {
		log.Error("%s: start: %v", src.Name(), err)
		return false
	}
	return true
}

// Stop never fails the state change; the element is going down either way.
func stop(src *element.BaseSrc) bool {
	if err := backend(src).Stop(); err != nil {
		log.Warn("%s: stop: %v", src.Name(), err)
	}
	return true
}

func isSeekable(src *element.BaseSrc) bool {
	return backend(src).IsSeekable()
}

// The size query always succeeds. An unknown size is reported as SizeUnknown,
// which the host treats as unbounded.
func getSize(src *element.BaseSrc) (uint64, bool) {
	return backend(src).Size(), true
}

func fill(src *element.BaseSrc, offset uint64, length uint, buf *element.Buffer) element.FlowReturn {
	log.Trace(2, "%s: fill %d bytes at %d", src.Name(), length, offset)

	n, err := backend(src).Fill(offset, buf.Map()[:length])
	if n < 0 || n > int(length) {
		log.Error("%s: fill returned %d bytes for a %d byte buffer", src.Name(), n, length)
		return element.FlowError
	}

	var ret element.FlowReturn
	switch {
	case err == nil:
		ret = element.FlowOK
	case err == io.EOF && n > 0:
		ret = element.FlowOK
	case err == io.EOF:
		ret = element.FlowEOS
	default:
		log.Error("%s: fill at %d: %v", src.Name(), offset, err)
		ret = element.FlowError
	}
	if ret == element.FlowOK {
		buf.SetSize(n)
	}

	log.Trace(2, "%s: filled %d bytes at %d: %v", src.Name(), n, offset, ret)
	return ret
}

func doSeek(src *element.BaseSrc, segment *element.Segment) bool {
	if err := backend(src).Seek(segment.Start, segment.Stop); err != nil {
		log.Debug("%s: Failed to seek to %v: %v", src.Name(), segment, err)
		return false
	}
	return element.BaseSrcDoSeek(src, segment)
}
