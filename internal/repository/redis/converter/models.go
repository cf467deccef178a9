package converter

// ProductCardRedisModel — карточка товара в кэше (JSON).
type ProductCardRedisModel struct {
	ID             int64  `json:"id"`
	Classification string `json:"classification"`
	Category       string `json:"category"`
	Brand          string `json:"brand"`
	Name           string `json:"name"`
	Price          int64  `json:"price"`
	Img            string `json:"img"`
	IfAffiliated   bool   `json:"if_affiliated"`
	Reviews        string `json:"reviews"`
}
