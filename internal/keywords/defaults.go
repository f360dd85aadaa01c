package keywords

// DefaultEntries is the curated health-food dictionary distilled from the top
// grouped terms in historical storefront search exports. Variants carry both
// Arabic-yeh and Farsi-yeh spellings because both appear in Gulf traffic, plus
// the Latin transliterations and frequent typos observed in the data.
//
// Order matters: more specific concepts come before the broad ones they could
// collide with (carnitine before creatine, probiotic before biotin), since a
// score tie goes to the earlier entry.
func DefaultEntries() []CanonicalEntry {
	return []CanonicalEntry{
		{
			Key:       "مغنيسيوم",
			Variants:  []string{"مغنيسيوم", "مغنیسیوم", "ماغنيسيوم", "مغنسيوم", "ماغنسيوم", "مغنيزيوم", "magnesium", "magnisium", "magnezium"},
			Compounds: []string{"جلايسينات", "جليسينات", "سترات", "glycinate", "citrate", "400"},
			Threshold: 78,
			MinLength: 5,
		},
		{
			Key:           "فيتامين",
			Variants:      []string{"فيتامين", "فیتامین", "فيتامينات", "فيتامن", "vitamin", "vitamins", "vitamine", "vitamien"},
			ExcludedTerms: []string{"فيتنس", "فیتنس", "fitness"},
			Compounds:     []string{"1000", "5000", "10000", "دال", "سي", "d3", "b12", "complex"},
			Threshold:     80,
			MinLength:     5,
		},
		{
			Key:       "اوميغا",
			Variants:  []string{"اوميغا", "اوميجا", "أوميغا", "أوميجا", "اومیغا", "اوميقا", "omega", "omga", "omegga"},
			Compounds: []string{"369", "1000", "سمك", "fish", "كبسولات"},
			Threshold: 80,
			MinLength: 4,
		},
		{
			Key:       "كولاجين",
			Variants:  []string{"كولاجين", "كولاجن", "كلاجين", "كولجين", "collagen", "colagen", "collagin"},
			Compounds: []string{"بحري", "بودرة", "marine", "peptides"},
			Threshold: 78,
			MinLength: 5,
		},
		{
			Key:       "بروبيوتيك",
			Variants:  []string{"بروبيوتيك", "بروبايوتيك", "بروبيوتك", "probiotic", "probiotics", "probiotik"},
			Threshold: 80,
			MinLength: 6,
		},
		{
			Key:           "بروتين",
			Variants:      []string{"بروتين", "بروتينات", "برتين", "protein", "proteen", "protien"},
			ExcludedTerms: []string{"بروبيوتيك", "probiotic"},
			Compounds:     []string{"واي", "ايزو", "whey", "isolate", "نباتي"},
			Threshold:     80,
			MinLength:     5,
		},
		{
			Key:           "كارنيتين",
			Variants:      []string{"كارنيتين", "كارنتين", "carnitine", "carnitin", "karnitine"},
			ExcludedTerms: []string{"كرياتين", "creatine"},
			Threshold:     78,
			MinLength:     6,
		},
		{
			Key:           "كرياتين",
			Variants:      []string{"كرياتين", "كيرياتين", "كرياتن", "creatine", "creatin", "kreatin"},
			ExcludedTerms: []string{"كارنيتين", "carnitine"},
			Compounds:     []string{"مونوهيدرات", "monohydrate"},
			Threshold:     78,
			MinLength:     5,
		},
		{
			Key:       "ميلاتونين",
			Variants:  []string{"ميلاتونين", "ملاتونين", "ميلاتونن", "melatonin", "melatonine", "melatonen"},
			Compounds: []string{"10", "مساعد", "نوم", "sleep"},
			Threshold: 78,
			MinLength: 6,
		},
		{
			Key:           "بيوتين",
			Variants:      []string{"بيوتين", "بايوتين", "بيوتن", "biotin", "bioten", "biotine"},
			ExcludedTerms: []string{"بروبيوتيك", "probiotic"},
			Compounds:     []string{"10000", "5000", "شعر", "hair"},
			Threshold:     80,
			MinLength:     5,
		},
		{
			Key:       "اشواغاندا",
			Variants:  []string{"اشواغاندا", "اشواجاندا", "أشواغاندا", "اشوقاندا", "ashwagandha", "ashwaganda", "ashvagandha"},
			Threshold: 74,
			MinLength: 6,
		},
		{
			Key:       "زنك",
			Variants:  []string{"زنك", "زينك", "zinc", "zink"},
			Compounds: []string{"بيكولينات", "picolinate", "50"},
			Threshold: 85,
			MinLength: 3,
		},
		{
			Key:       "حديد",
			Variants:  []string{"حديد", "الحديد", "iron"},
			Threshold: 85,
			MinLength: 4,
		},
		{
			Key:       "كالسيوم",
			Variants:  []string{"كالسيوم", "كلسيوم", "كالسيم", "calcium", "calcum", "kalsium"},
			Threshold: 80,
			MinLength: 5,
		},
		{
			Key:       "كركم",
			Variants:  []string{"كركم", "كركمين", "turmeric", "curcumin", "curcuma", "kurkum"},
			Compounds: []string{"فلفل", "piperine"},
			Threshold: 80,
			MinLength: 4,
		},
		{
			Key:       "جنسنج",
			Variants:  []string{"جنسنج", "جينسينج", "جنسنغ", "جينسنج", "ginseng", "jinseng", "ginsing"},
			Threshold: 78,
			MinLength: 5,
		},
		{
			Key:       "سبيرولينا",
			Variants:  []string{"سبيرولينا", "سبرولينا", "spirulina", "spirolina", "spirullina"},
			Threshold: 76,
			MinLength: 6,
		},
		{
			Key:       "مانوكا",
			Variants:  []string{"مانوكا", "مانوكه", "manuka", "manouka"},
			Compounds: []string{"عسل", "honey", "850"},
			Threshold: 80,
			MinLength: 5,
		},
		{
			Key:       "عسل",
			Variants:  []string{"عسل", "العسل", "honey"},
			Threshold: 85,
			MinLength: 3,
		},
		{
			Key:       "جلوتين",
			Variants:  []string{"جلوتين", "غلوتين", "قلوتين", "gluten"},
			Compounds: []string{"فري", "free", "خالي"},
			Threshold: 80,
			MinLength: 5,
		},
		{
			Key:       "شوفان",
			Variants:  []string{"شوفان", "الشوفان", "oats", "oatmeal", "oat"},
			Threshold: 82,
			MinLength: 3,
		},
		{
			Key:       "كينوا",
			Variants:  []string{"كينوا", "الكينوا", "quinoa", "kinwa", "kinoa"},
			Threshold: 80,
			MinLength: 5,
		},
		{
			Key:       "شيا",
			Variants:  []string{"شيا", "تشيا", "chia", "chya"},
			Compounds: []string{"بذور", "seeds"},
			Threshold: 85,
			MinLength: 3,
		},
		{
			Key:       "حلبة",
			Variants:  []string{"حلبة", "الحلبة", "fenugreek", "hilba"},
			Threshold: 82,
			MinLength: 4,
		},
		{
			Key:       "زعفران",
			Variants:  []string{"زعفران", "الزعفران", "saffron", "zafran", "safran"},
			Threshold: 78,
			MinLength: 5,
		},
		{
			Key:       "مورينغا",
			Variants:  []string{"مورينغا", "مورينجا", "المورينجا", "moringa", "morenga"},
			Threshold: 78,
			MinLength: 6,
		},
		{
			Key:       "ستيفيا",
			Variants:  []string{"ستيفيا", "ستيفا", "stevia", "stivia"},
			Threshold: 80,
			MinLength: 5,
		},
		{
			Key:       "كيتو",
			Variants:  []string{"كيتو", "الكيتو", "keto", "kito"},
			Compounds: []string{"دايت", "diet"},
			Threshold: 85,
			MinLength: 4,
		},
	}
}
