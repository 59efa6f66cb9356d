// Package product defines the store catalog model.
package product

// Product is one purchasable catalog entry.
type Product struct {
	ID          string  `json:"product_id"`
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Description string  `json:"description,omitempty"`
	Image       string  `json:"image_url,omitempty"`
	Category    string  `json:"category,omitempty"`
}

// Seed returns the built-in catalog used to initialize an empty store and as
// the offline fallback for the storefront.
func Seed() []Product {
	return []Product{
		{ID: "baldurs", Title: "BALDUR'S GATE 3", Price: 59.99, Description: "Open-world RPG with sweeping choices", Image: "images/baldurs-gate-3-product.jpg", Category: "RPG"},
		{ID: "elden-ring", Title: "ELDEN RING", Price: 59.99, Description: "Action RPG with a punishing open world", Image: "images/elden-ring.jpg", Category: "RPG"},
		{ID: "starfield", Title: "STARFIELD", Price: 69.99, Description: "Space exploration and sci-fi adventure", Image: "images/starfield.jpg", Category: "Adventure"},
		{ID: "cyberpunk", Title: "CYBERPUNK 2077", Price: 39.99, Description: "Futuristic RPG in a dystopian city", Image: "images/cyberpunk-2077.jpg", Category: "RPG"},
		{ID: "hogwarts", Title: "HOGWARTS LEGACY", Price: 49.99, Description: "Magical adventure in the wizarding world", Image: "images/hogwarts-legacy.jpg", Category: "Adventure"},
		{ID: "dragon", Title: "DRAGON'S DOGMA 2", Price: 49.99, Description: "Epic action RPG with intense battles", Image: "images/dragons-dogma-2.jpg", Category: "Action"},
	}
}
