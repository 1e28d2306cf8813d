package model

import (
	"fmt"
	"slices"
)

// Category is the catalog section a stone is listed under.
type Category string

const (
	CategoryImportedMarble    Category = "Imported Marble"
	CategoryImportedGranite   Category = "Imported Granite"
	CategoryExotics           Category = "Exotics"
	CategoryOnyx              Category = "Onyx"
	CategoryTravertine        Category = "Travertine"
	CategoryIndianMarble      Category = "Indian Marble"
	CategoryIndianGranite     Category = "Indian Granite"
	CategorySemiPreciousStone Category = "Semi Precious Stone"
	CategoryQuartzite         Category = "Quartzite"
	CategorySandstone         Category = "Sandstone"
)

// Categories lists every valid Category in catalog order.
var Categories = []Category{
	CategoryImportedMarble,
	CategoryImportedGranite,
	CategoryExotics,
	CategoryOnyx,
	CategoryTravertine,
	CategoryIndianMarble,
	CategoryIndianGranite,
	CategorySemiPreciousStone,
	CategoryQuartzite,
	CategorySandstone,
}

func (c Category) Validate() error {
	if !slices.Contains(Categories, c) {
		return fmt.Errorf("%q is not a valid category", string(c))
	}
	return nil
}

// ApplicationArea is where a stone can be installed.
type ApplicationArea string

const (
	AreaFlooring    ApplicationArea = "Flooring"
	AreaCountertops ApplicationArea = "Countertops"
	AreaWalls       ApplicationArea = "Walls"
	AreaExterior    ApplicationArea = "Exterior"
	AreaInterior    ApplicationArea = "Interior"
)

// ApplicationAreas lists every valid ApplicationArea.
var ApplicationAreas = []ApplicationArea{
	AreaFlooring,
	AreaCountertops,
	AreaWalls,
	AreaExterior,
	AreaInterior,
}

func (a ApplicationArea) Validate() error {
	if !slices.Contains(ApplicationAreas, a) {
		return fmt.Errorf("%q is not a valid application area", string(a))
	}
	return nil
}

// AreasToStrings converts areas for storage.
func AreasToStrings(areas []ApplicationArea) []string {
	out := make([]string, len(areas))
	for i, a := range areas {
		out[i] = string(a)
	}
	return out
}

// AreasFromStrings converts stored values back; it does not validate.
func AreasFromStrings(values []string) []ApplicationArea {
	out := make([]ApplicationArea, len(values))
	for i, v := range values {
		out[i] = ApplicationArea(v)
	}
	return out
}
