package maps

import "friendus/internal/planner"

// placeKind is what the planner needs to know about a provider's place type.
type placeKind struct {
	category string
	indoor   *bool
}

var (
	indoor  = true
	outdoor = false
)

// googleKinds maps Google Places types. Types are checked in the order the
// provider returns them; the first known one wins.
var googleKinds = map[string]placeKind{
	"restaurant":       {planner.CategoryFood, &indoor},
	"meal_takeaway":    {planner.CategoryFood, nil},
	"meal_delivery":    {planner.CategoryFood, nil},
	"food":             {planner.CategoryFood, nil},
	"cafe":             {planner.CategoryCafe, &indoor},
	"bakery":           {planner.CategoryCafe, &indoor},
	"museum":           {planner.CategoryMuseum, &indoor},
	"art_gallery":      {planner.CategoryMuseum, &indoor},
	"shopping_mall":    {planner.CategoryShopping, &indoor},
	"department_store": {planner.CategoryShopping, &indoor},
	"supermarket":      {planner.CategoryShopping, &indoor},
	"clothing_store":   {planner.CategoryShopping, &indoor},
	"store":            {planner.CategoryShopping, nil},
	"park":             {planner.CategoryPark, &outdoor},
	"zoo":              {planner.CategoryPark, &outdoor},
	"amusement_park":   {planner.CategoryPark, &outdoor},
	"campground":       {planner.CategoryPark, &outdoor},
	"natural_feature":  {planner.CategoryPark, &outdoor},
	"bar":              {planner.CategoryNightlife, &indoor},
	"night_club":       {planner.CategoryNightlife, &indoor},
	"movie_theater":    {planner.CategoryEntertainment, &indoor},
	"bowling_alley":    {planner.CategoryEntertainment, &indoor},
	"spa":              {planner.CategoryEntertainment, &indoor},
}

// osmKinds maps OpenStreetMap "class/type" tags as returned by Nominatim.
var osmKinds = map[string]placeKind{
	"amenity/restaurant":    {planner.CategoryFood, &indoor},
	"amenity/fast_food":     {planner.CategoryFood, nil},
	"amenity/food_court":    {planner.CategoryFood, &indoor},
	"amenity/cafe":          {planner.CategoryCafe, &indoor},
	"shop/bakery":           {planner.CategoryCafe, &indoor},
	"amenity/bar":           {planner.CategoryNightlife, &indoor},
	"amenity/pub":           {planner.CategoryNightlife, &indoor},
	"amenity/nightclub":     {planner.CategoryNightlife, &indoor},
	"amenity/cinema":        {planner.CategoryEntertainment, &indoor},
	"amenity/theatre":       {planner.CategoryEntertainment, &indoor},
	"tourism/museum":        {planner.CategoryMuseum, &indoor},
	"tourism/gallery":       {planner.CategoryMuseum, &indoor},
	"tourism/zoo":           {planner.CategoryPark, &outdoor},
	"tourism/theme_park":    {planner.CategoryPark, &outdoor},
	"leisure/park":          {planner.CategoryPark, &outdoor},
	"leisure/garden":        {planner.CategoryPark, &outdoor},
	"shop/mall":             {planner.CategoryShopping, &indoor},
	"shop/department_store": {planner.CategoryShopping, &indoor},
	"shop/supermarket":      {planner.CategoryShopping, &indoor},
	"amenity/marketplace":   {planner.CategoryShopping, nil},
}

func googleKind(types []string) placeKind {
	for _, t := range types {
		if k, ok := googleKinds[t]; ok {
			return k
		}
	}
	return placeKind{}
}

func osmKind(class, typ string) placeKind {
	return osmKinds[class+"/"+typ]
}
