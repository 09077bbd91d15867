// Package schema decodes the CoreUI asset-catalog records stored inside a
// BOM container: the catalog header, key format descriptor, facet key
// tokens and rendition attribute keys.
package schema

import "fmt"

// AttributeType identifies one dimension of a rendition key. The set grows
// between catalog versions; unknown values are carried through numerically
// rather than rejected.
type AttributeType uint32

// Attribute types in wire order.
const (
	AttributeLook AttributeType = iota
	AttributeElement
	AttributePart
	AttributeSize
	AttributeDirection
	AttributePlaceholder
	AttributeTypeValue
	AttributeAppearance
	AttributeDimension1
	AttributeDimension2
	AttributeState
	AttributeLayer
	AttributeScale
	AttributeUnknown13
	AttributePresentationState
	AttributeIdiom
	AttributeSubtype
	AttributeIdentifier
	AttributePreviousValue
	AttributePreviousState
	AttributeSizeClassHorizontal
	AttributeSizeClassVertical
	AttributeMemoryClass
	AttributeGraphicsClass
	AttributeDisplayGamut
	AttributeDeploymentTarget
)

var attributeNames = map[AttributeType]string{
	AttributeLook:                "Look",
	AttributeElement:             "Element",
	AttributePart:                "Part",
	AttributeSize:                "Size",
	AttributeDirection:           "Direction",
	AttributePlaceholder:         "PlaceHolder",
	AttributeTypeValue:           "Value",
	AttributeAppearance:          "Appearance",
	AttributeDimension1:          "Dimension1",
	AttributeDimension2:          "Dimension2",
	AttributeState:               "State",
	AttributeLayer:               "Layer",
	AttributeScale:               "Scale",
	AttributeUnknown13:           "Unknown13",
	AttributePresentationState:   "PresentationState",
	AttributeIdiom:               "Idiom",
	AttributeSubtype:             "Subtype",
	AttributeIdentifier:          "Identifier",
	AttributePreviousValue:       "PreviousValue",
	AttributePreviousState:       "PreviousState",
	AttributeSizeClassHorizontal: "SizeClassHorizontal",
	AttributeSizeClassVertical:   "SizeClassVertical",
	AttributeMemoryClass:         "MemoryClass",
	AttributeGraphicsClass:       "GraphicsClass",
	AttributeDisplayGamut:        "DisplayGamut",
	AttributeDeploymentTarget:    "DeploymentTarget",
}

// Known reports whether the attribute type is part of the documented set.
func (a AttributeType) Known() bool {
	_, ok := attributeNames[a]
	return ok
}

func (a AttributeType) String() string {
	if name, ok := attributeNames[a]; ok {
		return name
	}
	return fmt.Sprintf("Attribute(%d)", uint32(a))
}

// ThemeKeyName returns the CoreUI constant name for the attribute, the form
// the reference tool prints in its key format listing.
func (a AttributeType) ThemeKeyName() string {
	if name, ok := attributeNames[a]; ok {
		if a == AttributeIdentifier {
			return "kCRThemeIdentifierName"
		}
		return "kCRTheme" + name + "Name"
	}
	return fmt.Sprintf("kCRThemeAttribute%dName", uint32(a))
}

// AttributeValue is one decoded component of a rendition key.
type AttributeValue struct {
	Type  AttributeType
	Value uint16
}

// Idiom is the device class a rendition targets, stored in the Idiom
// attribute.
type Idiom uint16

const (
	IdiomUniversal Idiom = iota
	IdiomPhone
	IdiomPad
	IdiomTV
	IdiomCar
	IdiomWatch
	IdiomMarketing
)

var idiomNames = map[Idiom]string{
	IdiomUniversal: "universal",
	IdiomPhone:     "phone",
	IdiomPad:       "pad",
	IdiomTV:        "tv",
	IdiomCar:       "car",
	IdiomWatch:     "watch",
	IdiomMarketing: "marketing",
}

func (i Idiom) String() string {
	if name, ok := idiomNames[i]; ok {
		return name
	}
	return fmt.Sprintf("idiom(%d)", uint16(i))
}
