package source

import (
	"github.com/lanikai/alohasrc/internal/element"
)

func uriHandler() *element.URIHandlerInterface {
	return &element.URIHandlerInterface{
		GetType:      func(element.Type) element.URIType { return element.URISrc },
		GetProtocols: getProtocols,
		GetURI:       getURI,
		SetURI:       setURI,
	}
}

func getProtocols(t element.Type) []string {
	return mustLookup(t).Schemes()
}

func getURI(src *element.BaseSrc) (string, bool) {
	uri, ok := backend(src).URI()
	log.Debug("%s: URI is %q (set: %v)", src.Name(), uri, ok)
	return uri, ok
}

// setURI hands uri to the backend. The host has already checked the scheme
// and the element state.
func setURI(src *element.BaseSrc, uri string) error {
	err := backend(src).SetURI(uri)
	if err == nil {
		return nil
	}

	log.Error("%s: Failed to set URI: %v", src.Name(), err)
	if uerr, ok := err.(*element.URIError); ok {
		return uerr
	}
	return &element.URIError{Code: element.URIErrorBadURI, URI: uri, Err: err}
}

// setURIChecked is setURI for the "uri" property, which does not go through
// the host's URI handler entry point.
func setURIChecked(src *element.BaseSrc, uri string) error {
	if _, ok := element.URIProtocol(uri); !ok {
		return &element.URIError{Code: element.URIErrorBadURI, URI: uri, Err: ErrInvalidURI}
	}
	for _, scheme := range getProtocols(src.Type()) {
		if element.URIHasProtocol(uri, scheme) {
			return setURI(src, uri)
		}
	}
	return &element.URIError{
		Code: element.URIErrorUnsupportedProtocol,
		URI:  uri,
		Err:  ErrInvalidURI,
	}
}
