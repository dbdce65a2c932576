package discovery

// SeedSource labels discoveries that fell back to the seed list.
const SeedSource = "seed"

// Seed returns the fixed list served when every source comes back empty. A fresh slice is
// returned on each call.
func Seed() []Candidate {
	return []Candidate{
		{
			Name:      "Hotaru",
			Address:   "Shop 301, 3/F, K11 Art Mall, 18 Hanoi Road, Tsim Sha Tsui",
			SourceURL: "https://www.openrice.com/en/hongkong/r-hotaru-tsim-sha-tsui-japanese-omakase-r776234",
		},
		{
			Name:      "Carna by Dario Cecchini",
			Address:   "Shop OTE 401A, 4/F, Ocean Terminal, Harbour City, Tsim Sha Tsui",
			SourceURL: "https://www.openrice.com/en/hongkong/r-carna-by-dario-cecchini-tsim-sha-tsui-italian-steak-house-r749615",
		},
		{
			Name:      "NOJO",
			Address:   "1-13 Elgin Street, Central",
			SourceURL: "https://www.openrice.com/en/hongkong/r-nojo-central-japanese-ramen-r772543",
		},
		{
			Name:      "HEXA",
			Address:   "Shop 301-305, 3/F, K11 MUSEA, Victoria Dockside, Tsim Sha Tsui",
			SourceURL: "https://www.openrice.com/en/hongkong/r-hexa-tsim-sha-tsui-guangdong-dim-sum-r692876",
		},
		{
			Name:      "TONO DAIKIYA",
			Address:   "Shop 2201, 2/F, Gateway Arcade, Harbour City, Tsim Sha Tsui",
			SourceURL: "https://www.openrice.com/en/hongkong/r-tono-daikiya-tsim-sha-tsui-japanese-sushi-r768432",
		},
		{
			Name:      "Mr. Steak Buffet à la minute",
			Address:   "13/F, V Point, 18 Tang Lung Street, Causeway Bay",
			SourceURL: "https://www.openrice.com/en/hongkong/r-mr-steak-buffet-a-la-minute-causeway-bay-international-buffet-r772102",
		},
		{
			Name:      "Maison Beirut",
			Address:   "G/F, 65 Hollywood Road, Central",
			SourceURL: "https://www.openrice.com/en/hongkong/r-maison-beirut-central-lebanese-r765891",
		},
		{
			Name:      "Morton's of Chicago",
			Address:   "Shop 411-413, Level 4, Ocean Centre, Harbour City, Tsim Sha Tsui",
			SourceURL: "https://www.openrice.com/en/hongkong/r-mortons-of-chicago-tsim-sha-tsui-american-steak-house-r769234",
		},
	}
}
