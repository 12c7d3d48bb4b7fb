package studio

import "fmt"

// Language - 템플릿 프롬프트 언어
type Language string

const (
	LangEN Language = "en"
	LangZH Language = "zh"
)

// ParseLanguage - 알 수 없는 값은 en
func ParseLanguage(s string) Language {
	if Language(s) == LangZH {
		return LangZH
	}
	return LangEN
}

// Toggle - en ↔ zh
func (l Language) Toggle() Language {
	if l == LangZH {
		return LangEN
	}
	return LangZH
}

// AspectRatio - 광고 출력 비율
type AspectRatio struct {
	Value   string `json:"value"`
	LabelEN string `json:"label_en"`
	LabelZH string `json:"label_zh"`
}

// Template - 카테고리별 광고 템플릿
type Template struct {
	ID        string `json:"id"`
	NameEN    string `json:"name_en"`
	NameZH    string `json:"name_zh"`
	Thumbnail string `json:"thumbnail"`
	PromptEN  string `json:"prompt_en"`
	PromptZH  string `json:"prompt_zh"`
}

// Prompt - 언어별 프롬프트
func (t Template) Prompt(lang Language) string {
	if lang == LangZH {
		return t.PromptZH
	}
	return t.PromptEN
}

// Category - 템플릿 묶음
type Category struct {
	ID        string     `json:"id"`
	NameEN    string     `json:"name_en"`
	NameZH    string     `json:"name_zh"`
	Templates []Template `json:"templates"`
}

// VideoStyle - 비디오 광고 스타일
type VideoStyle struct {
	ID       string `json:"id"`
	NameEN   string `json:"name_en"`
	NameZH   string `json:"name_zh"`
	PromptEN string `json:"prompt_en"`
	PromptZH string `json:"prompt_zh"`
}

// Prompt - 언어별 프롬프트
func (v VideoStyle) Prompt(lang Language) string {
	if lang == LangZH {
		return v.PromptZH
	}
	return v.PromptEN
}

var aspectRatios = []AspectRatio{
	{Value: "1:1", LabelEN: "Square", LabelZH: "方形"},
	{Value: "16:9", LabelEN: "Landscape", LabelZH: "橫向"},
	{Value: "9:16", LabelEN: "Portrait", LabelZH: "縱向"},
	{Value: "4:3", LabelEN: "Standard", LabelZH: "標準"},
	{Value: "3:4", LabelEN: "Vertical", LabelZH: "垂直"},
}

// templateSeries - 같은 프롬프트를 공유하는 템플릿 10개
func templateSeries(prefix, thumbSeed, nameEN, nameZH, promptEN, promptZH string) []Template {
	templates := make([]Template, 0, 10)
	for i := 0; i < 10; i++ {
		templates = append(templates, Template{
			ID:        fmt.Sprintf("%s_%d", prefix, i+1),
			NameEN:    fmt.Sprintf("%s %d", nameEN, i+1),
			NameZH:    fmt.Sprintf("%s %d", nameZH, i+1),
			Thumbnail: fmt.Sprintf("https://picsum.photos/seed/%s%d/400/300", thumbSeed, i),
			PromptEN:  promptEN,
			PromptZH:  promptZH,
		})
	}
	return templates
}

var categories = []Category{
	{
		ID:     "sports",
		NameEN: "Sports & Fitness",
		NameZH: "運動與健身",
		Templates: templateSeries("sports", "sports", "Dynamic Action Shot", "動態動作拍攝",
			"Transform this product image into a high-energy sports advertisement. Place it in a dynamic action scene, like a stadium or on a mountain. Add motion blur and dramatic lighting. The text should be bold and motivational.",
			"將此產品圖片轉換為充滿活力的高能體育廣告。將其置於動態動作場景中，例如體育場或山上。添加運動模糊和戲劇性的燈光效果。文字應大膽且鼓舞人心。"),
	},
	{
		ID:     "newspaper",
		NameEN: "Newspaper & Print",
		NameZH: "報紙與印刷",
		Templates: templateSeries("newspaper", "news", "Vintage Classified", "復古分類廣告",
			"Re-imagine this product photo as a vintage, black-and-white newspaper classified ad from the 1950s. The product should be the central focus, illustrated in a classic halftone style. Add a catchy headline and a short description with a fictional price. The entire image should have an aged paper texture.",
			"將此產品照片重新構想為 1950 年代的復古黑白報紙分類廣告。產品應成為焦點，以經典的半色調風格進行插圖。添加一個引人注目的標題和帶有虛構價格的簡短描述。整個圖像應具有陳舊的紙張紋理。"),
	},
	{
		ID:     "magazine",
		NameEN: "Lifestyle & Magazine",
		NameZH: "生活與雜誌",
		Templates: templateSeries("magazine", "mag", "Glossy Spread", "光面跨頁",
			"Turn this product photo into a full-page, glossy lifestyle magazine advertisement. Place the product in a clean, luxurious, and aspirational setting. Use soft, elegant lighting and sophisticated typography for the ad copy.",
			"將此產品照片製作成一整頁、光鮮的生活方式雜誌廣告。將產品置於乾淨、奢華、令人嚮往的環境中。使用柔和、優雅的燈光和精緻的字體來製作廣告文案。"),
	},
	{
		ID:     "figurine",
		NameEN: "Figure Creation",
		NameZH: "公仔製作",
		Templates: templateSeries("figurine", "fig", "Collectible Figurine", "收藏級公仔",
			"Reimagine this product as a high-quality, detailed collectible figurine. Place it on a display stand with a clean background or in a diorama box that matches the product's theme. The lighting should be professional, highlighting the details of the figurine.",
			"將此產品重新想像成一個高品質、細節豐富的收藏級公仔。將其放置在帶有乾淨背景的展示架上，或放置在與產品主題相符的立體模型盒中。燈光應專業，突顯公仔的細節。"),
	},
	{
		ID:     "anime",
		NameEN: "Anime Style",
		NameZH: "動漫風格",
		Templates: templateSeries("anime", "anime", "Vibrant Anime Scene", "活力動漫場景",
			"Transform this product into a vibrant anime-style illustration. Place it in a dynamic scene with cel-shaded art, speed lines, and bright, saturated colors. Add a stylized logo or title in Japanese characters.",
			"將此產品轉變為充滿活力的動漫風格插圖。將其放置在具有賽璐珞著色藝術、速度線和明亮飽和色彩的動態場景中。添加一個帶有日文字符的風格化標誌或標題。"),
	},
	{
		ID:     "transport",
		NameEN: "Urban & Transportation",
		NameZH: "城市與交通",
		Templates: templateSeries("transport", "trans", "Bus Stop Ad", "公車站廣告",
			"Create an ad for this product as if it were on a bus stop shelter in a busy, modern city at night. The product should be prominently displayed and well-lit. Add reflections of city lights on the glass of the shelter.",
			"為該產品創建一個廣告，就好像它在繁忙、現代城市的夜晚的公車候車亭裡一樣。產品應突出展示且光線充足。在候車亭的玻璃上添加城市燈光的反射。"),
	},
	{
		ID:     "interior",
		NameEN: "Home & Interior Design",
		NameZH: "家居與室內設計",
		Templates: templateSeries("interior", "int", "Minimalist Catalog", "極簡主義目錄",
			"Feature this product in a minimalist interior design catalog. Place it in a Scandinavian-style room with neutral colors, natural light, and simple, elegant decor. The focus should be on how the product complements the space.",
			"在極簡主義室內設計目錄中展示該產品。將其放置在斯堪地那維亞風格的房間中，該房間具有中性色彩、自然光和簡約優雅的裝飾。重點應放在產品如何與空間相得益彰。"),
	},
	{
		ID:     "social",
		NameEN: "Digital & Social Media",
		NameZH: "數位與社交媒體",
		Templates: templateSeries("social", "social", "Instagram Post", "Instagram 貼文",
			"Generate an image for an Instagram post featuring this product. The style should be bright, trendy, and eye-catching, suitable for a social media feed. Place the product against a vibrant, solid color background or a lifestyle flat-lay scene. Add a short, engaging caption.",
			"為包含該產品的 Instagram 貼文生成一張圖片。風格應明亮、時尚、引人注目，適合社交媒體資訊流。將產品放置在充滿活力的純色背景或生活方式平面佈置場景中。添加簡短、引人勝事的標題。"),
	},
}

var videoStyles = []VideoStyle{
	{
		ID:       "cinematic",
		NameEN:   "Cinematic",
		NameZH:   "電影感",
		PromptEN: "A cinematic, high-quality, slow-motion video of the product with dramatic lighting.",
		PromptZH: "一段具有戲劇性燈光效果的電影般、高品質、慢動作的產品影片。",
	},
	{
		ID:       "fast_paced",
		NameEN:   "Fast-Paced & Energetic",
		NameZH:   "快節奏與活力",
		PromptEN: "A fast-paced, energetic video with quick cuts, dynamic camera movements, and upbeat music, showcasing the product in action.",
		PromptZH: "一段快節奏、充滿活力的影片，具有快速剪輯、動態攝影機移動和輕快的音樂，展示產品的實際使用情況。",
	},
	{
		ID:       "minimalist",
		NameEN:   "Minimalist & Clean",
		NameZH:   "極簡與乾淨",
		PromptEN: "A minimalist video featuring the product on a clean, solid-color background with smooth, subtle camera pans.",
		PromptZH: "一段極簡主義影片，在乾淨的純色背景上展示產品，並配以流暢、細微的攝影機平移。",
	},
	{
		ID:       "futuristic",
		NameEN:   "Futuristic & Sci-Fi",
		NameZH:   "未來與科幻",
		PromptEN: "A futuristic, sci-fi themed video with holographic elements, neon lights, and a high-tech feel.",
		PromptZH: "一段未來主義、科幻主題的影片，包含全息元素、霓虹燈和高科技感。",
	},
	{
		ID:       "vintage",
		NameEN:   "Vintage & Retro",
		NameZH:   "復古與懷舊",
		PromptEN: "A vintage-style video with a grainy, film-like texture, warm color grading, and a nostalgic feel, as if from the 1980s.",
		PromptZH: "一段復古風格的影片，具有顆粒狀的電影質感、溫暖的色調和懷舊的感覺，彷彿來自 1980 年代。",
	},
}

// AspectRatios - 지원 비율 목록
func AspectRatios() []AspectRatio {
	return aspectRatios
}

// Categories - 광고 카테고리 목록
func Categories() []Category {
	return categories
}

// VideoStyles - 비디오 스타일 목록
func VideoStyles() []VideoStyle {
	return videoStyles
}

// IsAspectRatio - 지원하는 비율 값인지
func IsAspectRatio(value string) bool {
	for _, r := range aspectRatios {
		if r.Value == value {
			return true
		}
	}
	return false
}

// FindCategory - ID로 카테고리 조회
func FindCategory(id string) (Category, bool) {
	for _, c := range categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// FindTemplate - 카테고리 안에서 템플릿 조회
func (c Category) FindTemplate(id string) (Template, bool) {
	for _, t := range c.Templates {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}

// FindVideoStyle - ID로 비디오 스타일 조회
func FindVideoStyle(id string) (VideoStyle, bool) {
	for _, v := range videoStyles {
		if v.ID == id {
			return v, true
		}
	}
	return VideoStyle{}, false
}
