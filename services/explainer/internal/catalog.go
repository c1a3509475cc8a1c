package internal

import "slices"

const (
	RegionUSSouth = "us-south"
	RegionEUDE    = "eu-de"
	RegionEUGB    = "eu-gb"
	RegionJPTok   = "jp-tok"
)

const (
	ModelLlama32 = "meta-llama/llama-3-2-3b-instruct"
	ModelFlanUL2 = "google/flan-ul2"
	ModelMixtral = "mistralai/mixtral-8x7b-instruct-v01"
)

const (
	LevelBeginner     = "Beginner"
	LevelIntermediate = "Intermediate"
	LevelAdvanced     = "Advanced"
)

var (
	Regions      = []string{RegionUSSouth, RegionEUDE, RegionEUGB, RegionJPTok}
	Models       = []string{ModelLlama32, ModelFlanUL2, ModelMixtral}
	Languages    = []string{"Python", "JavaScript", "Java", "C++", "C#", "Go", "Rust", "PHP", "Ruby", "Swift", "Other"}
	DetailLevels = []string{LevelBeginner, LevelIntermediate, LevelAdvanced}
)

// Sample is a ready-made snippet offered to users who have nothing to paste.
type Sample struct {
	Name     string `json:"name"`
	Language string `json:"language"`
	Code     string `json:"code"`
}

var Samples = []Sample{
	{
		Name:     "Python - Fibonacci",
		Language: "Python",
		Code: `def fibonacci(n):
    if n <= 1:
        return n
    return fibonacci(n-1) + fibonacci(n-2)

print(fibonacci(10))`,
	},
	{
		Name:     "JavaScript - Array Filter",
		Language: "JavaScript",
		Code: `const numbers = [1,2,3,4,5,6,7,8,9,10];
const evenNumbers = numbers.filter(num => num % 2 === 0);
console.log(evenNumbers);`,
	},
	{
		Name:     "Python - Class Example",
		Language: "Python",
		Code: `class Rectangle:
    def __init__(self, width, height):
        self.width = width
        self.height = height

    def area(self):
        return self.width * self.height`,
	},
}

// Catalog is the set of choices offered to the presentation layer.
type Catalog struct {
	Regions      []string `json:"regions"`
	Models       []string `json:"models"`
	Languages    []string `json:"languages"`
	DetailLevels []string `json:"detail_levels"`
	Samples      []Sample `json:"samples"`
	Defaults     struct {
		Region      string `json:"region"`
		Model       string `json:"model"`
		DetailLevel string `json:"detail_level"`
	} `json:"defaults"`
}

func NewCatalog(cfg Config) Catalog {
	c := Catalog{
		Regions:      Regions,
		Models:       Models,
		Languages:    Languages,
		DetailLevels: DetailLevels,
		Samples:      Samples,
	}
	c.Defaults.Region = cfg.Region
	c.Defaults.Model = cfg.Model
	c.Defaults.DetailLevel = LevelBeginner
	return c
}

func validRegion(r string) bool { return slices.Contains(Regions, r) }
func validModel(m string) bool  { return slices.Contains(Models, m) }
func validLanguage(l string) bool {
	return slices.Contains(Languages, l)
}
func validLevel(l string) bool { return slices.Contains(DetailLevels, l) }
