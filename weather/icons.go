package weather

// UnknownIcon ключ иконки для кодов, которых нет в таблице
const UnknownIcon = "ph:question-bold"

// Коды погодных условий QWeather -> ключи иконок Phosphor
var iconTable = map[string]string{
	// ясно и облачно
	"100": "ph:sun-bold",
	"101": "ph:cloud-sun-bold",
	"102": "ph:cloud-sun-bold",
	"103": "ph:cloud-bold",
	"104": "ph:cloud-bold",
	"150": "ph:moon-bold",
	"151": "ph:cloud-moon-bold",
	"152": "ph:cloud-moon-bold",
	"153": "ph:cloud-moon-bold",

	// дождь и гроза
	"300": "ph:cloud-rain-bold",
	"301": "ph:cloud-rain-bold",
	"302": "ph:cloud-lightning-bold",
	"303": "ph:cloud-lightning-bold",
	"304": "ph:cloud-snow-bold", // с градом
	"305": "ph:cloud-rain-bold",
	"306": "ph:cloud-rain-bold",
	"307": "ph:cloud-rain-bold",
	"308": "ph:cloud-rain-bold",
	"309": "ph:cloud-rain-bold",
	"310": "ph:cloud-rain-bold",
	"311": "ph:cloud-rain-bold",
	"312": "ph:cloud-rain-bold",
	"313": "ph:cloud-rain-bold",
	"314": "ph:cloud-rain-bold",
	"315": "ph:cloud-rain-bold",
	"316": "ph:cloud-rain-bold",
	"317": "ph:cloud-rain-bold",
	"318": "ph:cloud-rain-bold",
	"350": "ph:cloud-rain-bold",
	"351": "ph:cloud-rain-bold",
	"399": "ph:cloud-rain-bold",

	// снег
	"400": "ph:snowflake-bold",
	"401": "ph:snowflake-bold",
	"402": "ph:snowflake-bold",
	"403": "ph:snowflake-bold",
	"404": "ph:cloud-snow-bold",
	"405": "ph:cloud-snow-bold",
	"406": "ph:cloud-snow-bold",
	"407": "ph:snowflake-bold",
	"408": "ph:snowflake-bold",
	"409": "ph:snowflake-bold",
	"410": "ph:snowflake-bold",
	"456": "ph:cloud-snow-bold",
	"457": "ph:cloud-snow-bold",
	"499": "ph:snowflake-bold",

	// туман, дымка, пыль
	"500": "ph:cloud-fog-bold",
	"501": "ph:cloud-fog-bold",
	"502": "ph:cloud-fog-bold",
	"503": "ph:cloud-fog-bold",
	"504": "ph:cloud-fog-bold",
	"507": "ph:cloud-fog-bold",
	"508": "ph:cloud-fog-bold",
	"509": "ph:cloud-fog-bold",
	"510": "ph:cloud-fog-bold",
	"511": "ph:cloud-fog-bold",
	"512": "ph:cloud-fog-bold",
	"513": "ph:cloud-fog-bold",
	"514": "ph:cloud-fog-bold",
	"515": "ph:cloud-fog-bold",

	"900": "ph:sun-bold",
	"901": "ph:snowflake-bold",
	"999": UnknownIcon,
}

// IconFor возвращает ключ иконки для кода условий
func IconFor(code string) string {
	if icon, ok := iconTable[code]; ok {
		return icon
	}
	return UnknownIcon
}
