package order

import "regexp"

var phoneRegex = regexp.MustCompile(`^[0-9]{10}$`)

// ValidateCreate checks a checkout payload and returns one message per
// offending field. An empty map means the payload is acceptable.
func ValidateCreate(req CreateOrderRequest) FieldErrors {
	errs := FieldErrors{}

	if len(req.CustomerName) < 2 {
		errs["customerName"] = "name must be at least 2 characters"
	}
	if !phoneRegex.MatchString(req.CustomerPhone) {
		errs["customerPhone"] = "phone must be exactly 10 digits"
	}
	if req.CustomerWhatsapp != "" && !phoneRegex.MatchString(req.CustomerWhatsapp) {
		errs["customerWhatsapp"] = "whatsapp must be exactly 10 digits"
	}
	if req.CustomerAddress != "" && len(req.CustomerAddress) < 10 {
		errs["customerAddress"] = "address must be at least 10 characters"
	}

	if len(req.Items) == 0 {
		errs["items"] = "order must contain at least one item"
	} else if msg := validateItems(req.Items); msg != "" {
		errs["items"] = msg
	}

	return errs
}

// ValidateUpdate checks only the fields present in a partial edit.
func ValidateUpdate(req UpdateOrderRequest) FieldErrors {
	errs := FieldErrors{}

	if req.CustomerName != nil && len(*req.CustomerName) < 2 {
		errs["customerName"] = "name must be at least 2 characters"
	}
	if req.CustomerPhone != nil && !phoneRegex.MatchString(*req.CustomerPhone) {
		errs["customerPhone"] = "phone must be exactly 10 digits"
	}
	if req.CustomerWhatsapp != nil && *req.CustomerWhatsapp != "" && !phoneRegex.MatchString(*req.CustomerWhatsapp) {
		errs["customerWhatsapp"] = "whatsapp must be exactly 10 digits"
	}
	if req.CustomerAddress != nil && *req.CustomerAddress != "" && len(*req.CustomerAddress) < 10 {
		errs["customerAddress"] = "address must be at least 10 characters"
	}
	if req.Status != nil && !ValidStatus(OrderStatus(*req.Status)) {
		errs["status"] = "unknown status value"
	}

	if req.Items != nil {
		if len(*req.Items) == 0 {
			errs["items"] = "order must contain at least one item"
		} else if msg := validateItems(*req.Items); msg != "" {
			errs["items"] = msg
		}
	}

	return errs
}

func validateItems(items []OrderItemRequest) string {
	for _, it := range items {
		switch {
		case it.ID == 0:
			return "each item needs a positive product id"
		case it.Name == "":
			return "each item needs a product name"
		case it.Quantity <= 0:
			return "each item needs a positive quantity"
		case it.Price <= 0:
			return "each item needs a positive price"
		case it.Image == "":
			return "each item needs an image reference"
		}
	}
	return ""
}
