package peres

import (
	"errors"
	"fmt"
)

// ResourceType is the numeric type of a resource directory entry.
type ResourceType uint16

// Well-known resource types.
const (
	Cursor      ResourceType = 1
	Bitmap      ResourceType = 2
	Icon        ResourceType = 3
	Menu        ResourceType = 4
	Dialog      ResourceType = 5
	String      ResourceType = 6
	FontDir     ResourceType = 7
	Font        ResourceType = 8
	Accelerator ResourceType = 9
	RCData      ResourceType = 10
	TypeLibrary ResourceType = 11
	GroupCursor ResourceType = 12
	GroupIcon   ResourceType = 14
	Version     ResourceType = 16
	DialogInc   ResourceType = 17
	PlugPlay    ResourceType = 19
	VxD         ResourceType = 20
	AniCursor   ResourceType = 21
	AniIcon     ResourceType = 22
	HTML        ResourceType = 23
	Manifest    ResourceType = 24
)

var typeNames = map[ResourceType]string{
	Cursor:      "cursor",
	Bitmap:      "bitmap",
	Icon:        "icon",
	Menu:        "menu",
	Dialog:      "dialog",
	String:      "string",
	FontDir:     "fontdir",
	Font:        "font",
	Accelerator: "accelerator",
	RCData:      "rcdata",
	TypeLibrary: "typelib",
	GroupCursor: "group-cursor",
	GroupIcon:   "group-icon",
	Version:     "version",
	DialogInc:   "dlginclude",
	PlugPlay:    "plugplay",
	VxD:         "vxd",
	AniCursor:   "anicursor",
	AniIcon:     "aniicon",
	HTML:        "html",
	Manifest:    "manifest",
}

// RawType returns a resource type for a numeric code outside the well-known set.
func RawType(code uint16) ResourceType {
	return ResourceType(code)
}

// Known reports whether t is one of the well-known types.
func (t ResourceType) Known() bool {
	_, ok := typeNames[t]
	return ok
}

func (t ResourceType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", uint16(t))
}

// ParseResourceType accepts a well-known name ("manifest", "typelib", ...).
// Numeric codes are handled by the caller via RawType.
func ParseResourceType(name string) (ResourceType, bool) {
	for t, n := range typeNames {
		if n == name {
			return t, true
		}
	}
	return 0, false
}

// LangNeutral is the language-neutral LCID.
const LangNeutral uint16 = 0

// Name slots probed for application manifests, in order.
const (
	ManifestPrimary  uint16 = 1
	ManifestFallback uint16 = 2
)

// Identifier addresses a single resource by exact numeric match.
type Identifier struct {
	Type     ResourceType
	Name     uint16
	Language uint16
}

// TypeLibraryID is where the type library of a COM server is stored.
var TypeLibraryID = Identifier{Type: TypeLibrary, Name: 1, Language: LangNeutral}

// Validate rejects ordinals that cannot be stored in a resource directory.
func (id Identifier) Validate() error {
	if id.Type == 0 {
		return errors.New("resource type must not be zero")
	}
	if id.Name == 0 {
		return errors.New("resource name must not be zero")
	}
	return nil
}

func (id Identifier) String() string {
	return fmt.Sprintf("%s/%d/%d", id.Type, id.Name, id.Language)
}
