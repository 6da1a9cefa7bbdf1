package coap

import "fmt"

// Type is the CoAP message type carried in the header.
type Type uint8

const (
	Confirmable     = Type(0)
	NonConfirmable  = Type(1)
	Acknowledgement = Type(2)
	Reset           = Type(3)
)

var typeNames = map[Type]string{
	Confirmable:     "Confirmable",
	NonConfirmable:  "NonConfirmable",
	Acknowledgement: "Acknowledgement",
	Reset:           "Reset",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}

	return fmt.Sprintf("Unknown (0x%x)", uint8(t))
}

// Code is a CoAP method or response code. The upper three bits are
// the class, the lower five the detail, printed as "c.dd".
type Code uint8

// Method codes
const (
	GET    Code = 1
	POST   Code = 2
	PUT    Code = 3
	DELETE Code = 4
)

// Response codes
const (
	Created               Code = 65  // 2.01
	Deleted               Code = 66  // 2.02
	Valid                 Code = 67  // 2.03
	Changed               Code = 68  // 2.04
	Content               Code = 69  // 2.05
	BadRequest            Code = 128 // 4.00
	Unauthorized          Code = 129 // 4.01
	BadOption             Code = 130 // 4.02
	Forbidden             Code = 131 // 4.03
	NotFound              Code = 132 // 4.04
	MethodNotAllowed      Code = 133 // 4.05
	NotAcceptable         Code = 134 // 4.06
	PreconditionFailed    Code = 140 // 4.12
	RequestEntityTooLarge Code = 141 // 4.13
	UnsupportedMediaType  Code = 143 // 4.15
	InternalServerError   Code = 160 // 5.00
	NotImplemented        Code = 161 // 5.01
	BadGateway            Code = 162 // 5.02
	ServiceUnavailable    Code = 163 // 5.03
	GatewayTimeout        Code = 164 // 5.04
	ProxyingNotSupported  Code = 165 // 5.05
)

var codeNames = map[Code]string{
	GET:                   "GET",
	POST:                  "POST",
	PUT:                   "PUT",
	DELETE:                "DELETE",
	Created:               "Created",
	Deleted:               "Deleted",
	Valid:                 "Valid",
	Changed:               "Changed",
	Content:               "Content",
	BadRequest:            "BadRequest",
	Unauthorized:          "Unauthorized",
	BadOption:             "BadOption",
	Forbidden:             "Forbidden",
	NotFound:              "NotFound",
	MethodNotAllowed:      "MethodNotAllowed",
	NotAcceptable:         "NotAcceptable",
	PreconditionFailed:    "PreconditionFailed",
	RequestEntityTooLarge: "RequestEntityTooLarge",
	UnsupportedMediaType:  "UnsupportedMediaType",
	InternalServerError:   "InternalServerError",
	NotImplemented:        "NotImplemented",
	BadGateway:            "BadGateway",
	ServiceUnavailable:    "ServiceUnavailable",
	GatewayTimeout:        "GatewayTimeout",
	ProxyingNotSupported:  "ProxyingNotSupported",
}

// Class returns the code class (0 for methods, 2/4/5 for responses).
func (c Code) Class() int {
	return int(c >> 5)
}

// Detail returns the dd part of the dotted c.dd notation.
func (c Code) Detail() int {
	return int(c & 0x1f)
}

// IsMethod reports whether the code is a request method code.
func (c Code) IsMethod() bool {
	return c.Class() == 0 && c != 0
}

// IsError reports whether the code is a 4.xx or 5.xx response.
func (c Code) IsError() bool {
	return c.Class() >= 4
}

func (c Code) String() string {
	name, ok := codeNames[c]
	if !ok {
		name = "Unknown"
	}

	if c.IsMethod() {
		return name
	}

	return fmt.Sprintf("%d.%02d %s", c.Class(), c.Detail(), name)
}
