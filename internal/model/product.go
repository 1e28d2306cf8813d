package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// MinImages and MaxImages bound the number of images a product carries.
	MinImages = 1
	MaxImages = 10
)

// Product is a stone listing. ID is the storage identifier; BusinessKey is
// what callers address the product by.
type Product struct {
	ID                uuid.UUID         `json:"-"`
	BusinessKey       string            `json:"businessKey" validate:"required"`
	Name              string            `json:"name" validate:"required"`
	Price             decimal.Decimal   `json:"price" validate:"gte=0"`
	Category          Category          `json:"category" validate:"enum"`
	ApplicationAreas  []ApplicationArea `json:"applicationAreas" validate:"min=1,dive,enum"`
	Description       string            `json:"description"`
	QuantityAvailable decimal.Decimal   `json:"quantityAvailable" validate:"gte=0"`
	Size              string            `json:"size"`
	Thickness         string            `json:"thickness"`
	NumberOfPieces    *int              `json:"numberOfPieces" validate:"omitempty,gte=0"`
	Images            []string          `json:"images" validate:"min=1,max=10,dive,url"`
	Status            Status            `json:"status" validate:"enum"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// ImageFile is an uploaded image payload waiting to be stored.
type ImageFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ProductPatch describes a partial update. Fields that are not Present are
// left untouched by ApplyTo.
type ProductPatch struct {
	Name              Patch[string]
	Price             Patch[decimal.Decimal]
	Category          Patch[Category]
	ApplicationAreas  Patch[[]ApplicationArea]
	Description       Patch[string]
	QuantityAvailable Patch[decimal.Decimal]
	Size              Patch[string]
	Thickness         Patch[string]
	NumberOfPieces    Patch[*int]
	Images            Patch[[]string]
	Status            Patch[Status]
}

// IsEmpty reports whether the patch changes nothing.
func (p ProductPatch) IsEmpty() bool {
	return len(p.PresentFields()) == 0
}

// ApplyTo returns a copy of product with the present fields overwritten.
func (p ProductPatch) ApplyTo(product Product) Product {
	product.Name = p.Name.Or(product.Name)
	product.Price = p.Price.Or(product.Price)
	product.Category = p.Category.Or(product.Category)
	product.ApplicationAreas = p.ApplicationAreas.Or(product.ApplicationAreas)
	product.Description = p.Description.Or(product.Description)
	product.QuantityAvailable = p.QuantityAvailable.Or(product.QuantityAvailable)
	product.Size = p.Size.Or(product.Size)
	product.Thickness = p.Thickness.Or(product.Thickness)
	product.NumberOfPieces = p.NumberOfPieces.Or(product.NumberOfPieces)
	product.Images = p.Images.Or(product.Images)
	product.Status = p.Status.Or(product.Status)
	return product
}

// PresentFields returns the json names of the fields the patch sets, in
// declaration order.
func (p ProductPatch) PresentFields() []string {
	var fields []string
	add := func(present bool, name string) {
		if present {
			fields = append(fields, name)
		}
	}
	add(p.Name.Present, "name")
	add(p.Price.Present, "price")
	add(p.Category.Present, "category")
	add(p.ApplicationAreas.Present, "applicationAreas")
	add(p.Description.Present, "description")
	add(p.QuantityAvailable.Present, "quantityAvailable")
	add(p.Size.Present, "size")
	add(p.Thickness.Present, "thickness")
	add(p.NumberOfPieces.Present, "numberOfPieces")
	add(p.Images.Present, "images")
	add(p.Status.Present, "status")
	return fields
}
