package models

// Request bodies for the intent endpoints.

type AddLineRequest struct {
	ProductID  string            `json:"productId" binding:"required"`
	Qty        int               `json:"qty" binding:"omitempty,gt=0"`
	Selections map[string]string `json:"selections"`
}

type FilterRequest struct {
	ID string `json:"id" binding:"required"`
}

type SelectOptionRequest struct {
	OptionID string `json:"optionId" binding:"required"`
	ValueID  string `json:"valueId" binding:"required"`
}

type AdjustQtyRequest struct {
	Delta int `json:"delta" binding:"required"`
}

type CheckoutFieldRequest struct {
	Field string `json:"field" binding:"required"`
	Value string `json:"value"`
}

type CraftSubmitRequest struct {
	Name         string `json:"name"`
	ClassTeacher string `json:"classTeacher"`
	Request      string `json:"request"`
}
