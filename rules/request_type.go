package rules

import "math/bits"

// RequestType is the type of the filtered request.  Values are bit flags so
// that rules can keep sets of permitted and restricted types.
type RequestType uint32

// RequestType values.
const (
	// TypeNotSet means "no type", it's used for the rules that have no
	// content-type modifiers.
	TypeNotSet RequestType = 0

	// TypeDocument is a main frame, $document.
	TypeDocument RequestType = 1 << (iota - 1)
	// TypeSubdocument is an iframe, $subdocument.
	TypeSubdocument
	// TypeScript is a script, $script.
	TypeScript
	// TypeStylesheet is a CSS file, $stylesheet.
	TypeStylesheet
	// TypeObject is a plugin object, $object.
	TypeObject
	// TypeImage is any image, $image.
	TypeImage
	// TypeXmlhttprequest is an ajax or fetch request, $xmlhttprequest.
	TypeXmlhttprequest
	// TypeMedia is a video or audio, $media.
	TypeMedia
	// TypeFont is any custom font, $font.
	TypeFont
	// TypeWebsocket is a websocket connection, $websocket.
	TypeWebsocket
	// TypePing is a navigator.sendBeacon() or a ping attribute, $ping.
	TypePing
	// TypeCSPReport is a CSP violation report.
	TypeCSPReport
	// TypeOther is any other request type, $other.
	TypeOther

	// typeAll is the union of all request types.
	typeAll = TypeDocument | TypeSubdocument | TypeScript | TypeStylesheet |
		TypeObject | TypeImage | TypeXmlhttprequest | TypeMedia | TypeFont |
		TypeWebsocket | TypePing | TypeCSPReport | TypeOther
)

// Count returns the number of types set in t.
func (t RequestType) Count() (n int) {
	return bits.OnesCount32(uint32(t))
}

// requestTypeOptions maps content-type modifier names to request types.
var requestTypeOptions = map[string]RequestType{
	"subdocument":    TypeSubdocument,
	"script":         TypeScript,
	"stylesheet":     TypeStylesheet,
	"object":         TypeObject,
	"image":          TypeImage,
	"xmlhttprequest": TypeXmlhttprequest,
	"media":          TypeMedia,
	"font":           TypeFont,
	"websocket":      TypeWebsocket,
	"other":          TypeOther,
	"ping":           TypePing,
}
