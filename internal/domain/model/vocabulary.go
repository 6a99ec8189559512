package model

// DefaultVocabulary is the closed set of ingredient names a crop is
// classified into when no vocabulary is configured.
var DefaultVocabulary = []string{
	"Udon", "Broccoli", "Carrots", "Mushrooms", "Lo Mein",
	"Cabbage", "Rice Noodles", "Penne", "Cavatappi", "Red Onion",
	"Tortelloni", "Roasted Zucchini", "Grilled Chicken", "Shrimp", "Steak",
	"Meatballs", "Tofu", "Spaghetti", "Zoodles", "Tomatoes",
}
