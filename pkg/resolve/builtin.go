package resolve

// builtinMappings lists international release titles for films commonly
// stocked by boutique labels under their original-language name.
var builtinMappings = []Mapping{
	{Title: "House", Year: 1977, Alternates: alts("Hausu", "ハウス")},
	{Title: "Ring", Year: 1998, Alternates: alts("Ringu", "リング")},
	{Title: "Pulse", Year: 2001, Alternates: alts("Kairo", "回路")},
	{Title: "Cure", Year: 1997, Alternates: alts("Kyua", "キュア")},
	{Title: "Audition", Year: 1999, Alternates: alts("Ôdishon", "オーディション")},
	{Title: "Mother", Year: 2009, Alternates: alts("Madeo", "마더")},
	{Title: "Dark Water", Year: 2002, Alternates: alts("Honogurai mizu no soko kara", "仄暗い水の底から")},
	{Title: "One Cut of the Dead", Year: 2017, Alternates: alts("Kamera o tomeru na!", "カメラを止めるな!")},
	{Title: "Battle Royale", Year: 2000, Alternates: alts("Batoru rowaiaru", "バトル・ロワイアル")},
	{Title: "Oldboy", Year: 2003, Alternates: alts("Oldeuboi", "올드보이")},
	{Title: "Sympathy for Mr. Vengeance", Year: 2002, Alternates: alts("Boksuneun naui geot", "복수는 나의 것")},
	{Title: "Lady Vengeance", Year: 2005, Alternates: alts("Chinjeolhan geumjassi", "친절한 금자씨")},
	{Title: "I Saw the Devil", Year: 2010, Alternates: alts("Akmareul boatda", "악마를 보았다")},
	{Title: "The Host", Year: 2006, Alternates: alts("Gwoemul", "괴물")},
	{Title: "Train to Busan", Year: 2016, Alternates: alts("Busanhaeng", "부산행")},
	{Title: "Parasite", Year: 2019, Alternates: alts("Gisaengchung", "기생충")},
	{Title: "Memories of Murder", Year: 2003, Alternates: alts("Salinui chueok", "살인의 추억")},
	{Title: "A Tale of Two Sisters", Year: 2003, Alternates: alts("Janghwa, Hongryeon", "장화, 홍련")},
	{Title: "Thirst", Year: 2009, Alternates: alts("Bakjwi", "박쥐")},
	{Title: "Seven Samurai", Alternates: alts("Shichinin no samurai", "七人の侍")},
	{Title: "Tokyo Story", Alternates: alts("Tôkyô monogatari", "東京物語")},
	{Title: "Onibaba", Alternates: alts("鬼婆")},
	{Title: "Suspiria", Year: 1977, Alternates: alts("Suspiria - Profondo terrore")},
	{Title: "The Beyond", Year: 1981, Alternates: alts("E tu vivrai nel terrore - L'aldilà", "L'aldilà")},
	{Title: "Zombie", Year: 1979, Alternates: alts("Zombi 2", "Zombie Flesh Eaters")},
}

// Romanized titles are what vendors usually list, so they rank above
// native-script titles.
const (
	romanizedConfidence = 0.9
	nativeConfidence    = 0.6
)

func alts(titles ...string) []Alternate {
	out := make([]Alternate, 0, len(titles))
	for _, t := range titles {
		c := nativeConfidence
		if isLatin(t) {
			c = romanizedConfidence
		}
		out = append(out, Alternate{Title: t, Confidence: c})
	}
	return out
}
