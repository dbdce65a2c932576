package config

// DefaultUserAgent mimics a desktop browser; the listing site serves a bot wall otherwise.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DefaultAreas are the sub-areas queried, in order, by the places lookup.
var DefaultAreas = []string{
	"Central",
	"Tsim Sha Tsui",
	"Causeway Bay",
	"Mong Kok",
	"Wan Chai",
	"Sheung Wan",
}

// DefaultListingURLs are the listing pages scraped, in order.
var DefaultListingURLs = []string{
	"https://www.openrice.com/en/hongkong/restaurants?sort=createdate",
	"https://www.openrice.com/en/hongkong/explore/chart/new-restaurants",
	"https://www.openrice.com/en/hongkong/restaurants?where=&what=new",
}

// DefaultSearchURLs are keyword searches tried when the listing pages come up short.
var DefaultSearchURLs = []string{
	"https://www.openrice.com/en/hongkong/restaurants?what=new%20opening",
	"https://www.openrice.com/en/hongkong/restaurants?what=grand%20opening",
	"https://www.openrice.com/en/hongkong/restaurants?what=newly%20opened",
}

// DefaultDistricts are the district names used to spot an address in free text.
var DefaultDistricts = []string{
	"Central",
	"Sheung Wan",
	"Admiralty",
	"Wan Chai",
	"Causeway Bay",
	"Happy Valley",
	"North Point",
	"Quarry Bay",
	"Tai Koo",
	"Sai Ying Pun",
	"Kennedy Town",
	"Aberdeen",
	"Stanley",
	"Tsim Sha Tsui",
	"Jordan",
	"Yau Ma Tei",
	"Mong Kok",
	"Prince Edward",
	"Sham Shui Po",
	"Hung Hom",
	"Kowloon City",
	"Kowloon Bay",
	"Kwun Tong",
	"Sha Tin",
	"Tai Po",
	"Tsuen Wan",
	"Tuen Mun",
	"Yuen Long",
	"Sai Kung",
	"Tung Chung",
}
