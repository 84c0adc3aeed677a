// Package content holds the static devotional catalog: hadith items grouped
// into ten categories, the companion message for each category, and the
// dhikr phrases used by the tasbih counter.
package content

type Category string

const (
	GeneralMotivation Category = "general_motivation"
	Friday            Category = "friday"
	PrayerExcellence  Category = "prayer_excellence"
	TasbihExcellence  Category = "tasbih_excellence"
	Repentance        Category = "repentance"
	FajrStruggle      Category = "fajr_struggle"
	IshaStruggle      Category = "isha_struggle"
	PrayerAbandonment Category = "prayer_abandonment"
	TasbihNeglect     Category = "tasbih_neglect"
	Consistency       Category = "consistency"
)

var Categories = []Category{
	GeneralMotivation, Friday, PrayerExcellence, TasbihExcellence, Repentance,
	FajrStruggle, IshaStruggle, PrayerAbandonment, TasbihNeglect, Consistency,
}

type Item struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Source   string   `json:"source"`
	Category Category `json:"category"`
}

// Catalog is an immutable, ordered list of items.
type Catalog struct {
	items []Item
}

func NewCatalog(items []Item) *Catalog {
	return &Catalog{items: append([]Item(nil), items...)}
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return NewCatalog(hadiths)
}

// InCategory returns the items of one category, in catalog order.
func (c *Catalog) InCategory(cat Category) []Item {
	var out []Item
	for _, it := range c.items {
		if it.Category == cat {
			out = append(out, it)
		}
	}
	return out
}

// First is the fallback item for an empty category.
func (c *Catalog) First() Item {
	if len(c.items) == 0 {
		return Item{}
	}
	return c.items[0]
}

func (c *Catalog) Len() int {
	return len(c.items)
}

// Message returns the companion line shown above the selected item.
func Message(cat Category) string {
	if m, ok := messages[cat]; ok {
		return m
	}
	return messages[GeneralMotivation]
}

var messages = map[Category]string{
	Friday:            "اليوم جمعة، عيد الأسبوع! إليك هذا الحديث لتغتنم فضله:",
	FajrStruggle:      "لاحظت أنك تواجه صعوبة في الاستيقاظ لصلاة الفجر مؤخراً، هذا الحديث لك:",
	IshaStruggle:      "يبدو أن صلاة العشاء تفوتك كثيراً هذه الأيام، تذكر هذا الحديث العظيم:",
	PrayerAbandonment: "غيابك طال عن الصلاة.. الصلاة هي الرابط بينك وبين خالقك، اقرأ هذا الحديث بقلبك:",
	Repentance:        "أمس كان يوماً صعباً ولم تصلِّ، لكن باب التوبة مفتوح دائماً:",
	PrayerExcellence:  "ما شاء الله! التزامك بالصلوات رائع في الأيام الماضية، استمر على هذا النور:",
	TasbihExcellence:  "لسانك رطب بذكر الله! أداؤك في التسبيح ممتاز اليوم، اقرأ هذا الحديث:",
	TasbihNeglect:     "صلواتك ممتازة! لكنك نسيت التسبيح اليوم، هذا الحديث سيشجعك:",
	Consistency:       "أنت تحافظ على صلاتك بشكل جيد، تذكر هذا الحديث عن المداومة:",
	GeneralMotivation: "أنت في الطريق الصحيح، إليك حديث اليوم ليزيدك إيماناً وثباتاً:",
}

var hadiths = []Item{
	{ID: "f1", Category: FajrStruggle, Source: "رواه مسلم", Text: "ركعتا الفجر خير من الدنيا وما فيها"},
	{ID: "f2", Category: FajrStruggle, Source: "رواه مسلم", Text: "من صلى الصبح فهو في ذمة الله"},
	{ID: "f3", Category: FajrStruggle, Source: "متفق عليه", Text: "يعقد الشيطان على قافية رأس أحدكم إذا هو نام ثلاث عقد... فإن استيقظ فذكر الله انحلت عقدة، فإن توضأ انحلت عقدة، فإن صلى انحلت عقدة كلها، فأصبح نشيطاً طيب النفس."},

	{ID: "i1", Category: IshaStruggle, Source: "رواه مسلم", Text: "من صلى العشاء في جماعة فكأنما قام نصف الليل، ومن صلى الصبح في جماعة فكأنما صلى الليل كله"},
	{ID: "i2", Category: IshaStruggle, Source: "متفق عليه", Text: "ليس صلاة أثقل على المنافقين من الفجر والعشاء، ولو يعلمون ما فيهما لأتوهما ولو حبوا"},

	{ID: "c1", Category: Consistency, Source: "متفق عليه", Text: "أحب الأعمال إلى الله أدومها وإن قل"},
	{ID: "c2", Category: Consistency, Source: "رواه مسلم", Text: "عليك بكثرة السجود لله، فإنك لا تسجد لله سجدة إلا رفعك الله بها درجة، وحط عنك بها خطيئة"},
	{ID: "c3", Category: PrayerExcellence, Source: "رواه ابن ماجه", Text: "استقيموا ولن تحصوا، واعلموا أن خير أعمالكم الصلاة"},

	{ID: "r1", Category: Repentance, Source: "رواه الترمذي", Text: "كل بني آدم خطاء، وخير الخطائين التوابون"},
	{ID: "r2", Category: Repentance, Source: "رواه مسلم", Text: "إن الله عز وجل يبسط يده بالليل ليتوب مسيء النهار، ويبسط يده بالنهار ليتوب مسيء الليل"},
	{ID: "r3", Category: Repentance, Source: "رواه ابن ماجه", Text: "التائب من الذنب كمن لا ذنب له"},

	{ID: "a1", Category: PrayerAbandonment, Source: "رواه الترمذي", Text: "العهد الذي بيننا وبينهم الصلاة، فمن تركها فقد كفر"},
	{ID: "a2", Category: PrayerAbandonment, Source: "رواه مسلم", Text: "بين الرجل وبين الشرك والكفر ترك الصلاة"},

	{ID: "fr1", Category: Friday, Source: "رواه الحاكم", Text: "من قرأ سورة الكهف في يوم الجمعة أضاء له من النور ما بين الجمعتين"},
	{ID: "fr2", Category: Friday, Source: "رواه مسلم", Text: "خير يوم طلعت عليه الشمس يوم الجمعة، فيه خلق آدم، وفيه أدخل الجنة، وفيه أخرج منها"},
	{ID: "fr3", Category: Friday, Source: "رواه أبو داود", Text: "إن من أفضل أيامكم يوم الجمعة، فأكثروا علي من الصلاة فيه"},

	{ID: "t1", Category: TasbihExcellence, Source: "متفق عليه", Text: "كلمتان خفيفتان على اللسان، ثقيلتان في الميزان، حبيبتان إلى الرحمن: سبحان الله وبحمده، سبحان الله العظيم"},
	{ID: "t2", Category: TasbihExcellence, Source: "رواه الترمذي", Text: "ألا أنبئكم بخير أعمالكم، وأزكاها عند مليككم، وأرفعها في درجاتكم... ذكر الله"},
	{ID: "tn1", Category: TasbihNeglect, Source: "رواه البخاري", Text: "مثل الذي يذكر ربه والذي لا يذكر ربه كمثل الحي والميت"},

	{ID: "g1", Category: GeneralMotivation, Source: "رواه مسلم", Text: "الصلوات الخمس والجمعة إلى الجمعة كفارة لما بينهن ما لم تغش الكبائر"},
	{ID: "g2", Category: GeneralMotivation, Source: "رواه الطبراني", Text: "تحترقون تحترقون فإذا صليتم الفجر غسلتها، ثم تحترقون تحترقون فإذا صليتم الظهر غسلتها..."},
	{ID: "g3", Category: GeneralMotivation, Source: "متفق عليه", Text: "لو يعلم الناس ما في النداء والصف الأول ثم لم يجدوا إلا أن يستهموا عليه لاستهموا"},
}

// Dhikr is one phrase of the tasbih counter with its per-session target.
type Dhikr struct {
	ID     int    `json:"id"`
	Text   string `json:"text"`
	Target int    `json:"target"`
}

var DhikrList = []Dhikr{
	{ID: 1, Text: "سبحان الله", Target: 33},
	{ID: 2, Text: "الحمد لله", Target: 33},
	{ID: 3, Text: "الله أكبر", Target: 33},
	{ID: 4, Text: "لا إله إلا الله", Target: 100},
	{ID: 5, Text: "أستغفر الله", Target: 100},
	{ID: 6, Text: "اللهم صل وسلم على نبينا محمد", Target: 10},
}
