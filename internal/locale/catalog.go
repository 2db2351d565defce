package locale

import (
	"fmt"

	"github.com/kjstillabower/krishi-dashboard/internal/models"
)

// Catalog holds display strings per language. Lookups never fail: a key
// missing for the requested language renders as the key itself.
type Catalog struct {
	messages map[models.Language]map[string]string
}

// NewCatalog returns a catalog over messages. The map is not copied.
func NewCatalog(messages map[models.Language]map[string]string) *Catalog {
	return &Catalog{messages: messages}
}

// DefaultCatalog returns the built-in English and Hindi strings.
func DefaultCatalog() *Catalog {
	return NewCatalog(builtin)
}

// Text returns the string for key in lang.
func (c *Catalog) Text(lang models.Language, key string) string {
	if m, ok := c.messages[lang]; ok {
		if s, ok := m[key]; ok && s != "" {
			return s
		}
	}
	return key
}

// Textf formats the string for key in lang with args.
func (c *Catalog) Textf(lang models.Language, key string, args ...interface{}) string {
	return fmt.Sprintf(c.Text(lang, key), args...)
}

// Fallback returns the static fallback message for a widget.
func (c *Catalog) Fallback(lang models.Language, id models.WidgetID) string {
	return c.Text(lang, "fallback."+string(id))
}

var builtin = map[models.Language]map[string]string{
	models.LanguageEnglish: {
		"fallback.weather":           "Weather data is unavailable right now. Check your connection and retry.",
		"fallback.market_ticker":     "Live mandi prices are unavailable.",
		"fallback.seasonal_tip":      "Check soil moisture before irrigating and keep field bunds clear of weeds.",
		"fallback.crop_calendar":     "Crop calendar is unavailable right now.",
		"fallback.price_prediction":  "Price prediction is unavailable right now.",
		"fallback.price_advisory":    "Selling advice is unavailable right now.",
		"fallback.hero_banner":       "Welcome, farmer",
		"fallback.popular_questions": "Popular questions are unavailable right now.",
		"fallback.page_market":       "Failed to load market prices.",
		"fallback.page_crop_guide":   "Failed to load crop guide.",
		"fallback.page_pest_guide":   "Failed to load pest solutions.",
		"fallback.page_prediction":   "Failed to load price outlook.",
		"fallback.offline_suffix":    "You are offline.",

		"notify.offline":         "Connection lost. Switched to Offline mode.",
		"notify.online":          "Back online. Refreshing weather and market prices.",
		"notify.toggle_rejected": "Cannot switch to Online mode: no network connection.",
		"notify.mode_online":     "Online mode enabled.",
		"notify.mode_offline":    "Offline mode enabled. Showing saved answers only.",

		"greeting.morning":   "Good morning",
		"greeting.afternoon": "Good afternoon",
		"greeting.evening":   "Good evening",
		"hero.subtitle":      "Farming advice for %s",
		"season.kharif":      "Kharif season",
		"season.rabi":        "Rabi season",
		"season.zaid":        "Zaid season",

		"trend.rising":          "Rising",
		"trend.falling":         "Falling",
		"trend.stable":          "Stable",
		"prediction.band":       "Moderate uncertainty: prices can move several percent either way on weather or policy news.",
		"prediction.disclaimer": "Indicative estimate only. Not financial advice.",

		"verdict.HOLD":          "Hold",
		"verdict.SELL NOW":      "Sell now",
		"verdict.SELL AT MSP":   "Sell at MSP",
		"verdict.SELL IN MANDI": "Sell in mandi",
		"verdict.MONITOR":       "Monitor",

		"chat.no_results": "No exact match found. Try rephrasing your question.",

		"reason.volatile_rise":      "Prices expected to rise %.1f%%. Wait for better rates.",
		"reason.volatile_drop":      "Prices may drop %.1f%%. Sell current stock.",
		"reason.volatile_stable":    "Prices relatively stable (%+.1f%%). Watch the market daily.",
		"reason.msp_rising":         "Prices rising %.1f%% above current. Wait for the peak before selling.",
		"reason.msp_falling_at_msp": "Market price falling. Sell at MSP (Rs %.0f/qt) for guaranteed income.",
		"reason.msp_falling_sell":   "Prices dropping %.1f%%. Current price Rs %.0f/qt is above MSP.",
		"reason.above_msp":          "Market price Rs %.0f/qt is %d%% above MSP. Good time to sell.",
		"reason.below_msp":          "Market below MSP. Use government procurement at Rs %.0f/qt.",
		"reason.near_msp":           "Prices stable near MSP (%+.1f%%). Monitor for a better opportunity.",
	},
	models.LanguageHindi: {
		"fallback.weather":           "मौसम की जानकारी अभी उपलब्ध नहीं है। कनेक्शन जांचें और पुनः प्रयास करें।",
		"fallback.market_ticker":     "मंडी भाव अभी उपलब्ध नहीं हैं।",
		"fallback.seasonal_tip":      "सिंचाई से पहले मिट्टी की नमी जांचें और मेड़ों को खरपतवार से साफ रखें।",
		"fallback.crop_calendar":     "फसल कैलेंडर अभी उपलब्ध नहीं है।",
		"fallback.price_prediction":  "भाव पूर्वानुमान अभी उपलब्ध नहीं है।",
		"fallback.price_advisory":    "बिक्री सलाह अभी उपलब्ध नहीं है।",
		"fallback.hero_banner":       "स्वागत है, किसान भाई",
		"fallback.popular_questions": "लोकप्रिय सवाल अभी उपलब्ध नहीं हैं।",
		"fallback.page_market":       "मंडी भाव लोड नहीं हो सके।",
		"fallback.page_crop_guide":   "फसल गाइड लोड नहीं हो सकी।",
		"fallback.page_pest_guide":   "कीट समाधान लोड नहीं हो सके।",
		"fallback.page_prediction":   "भाव पूर्वानुमान लोड नहीं हो सका।",
		"fallback.offline_suffix":    "आप ऑफ़लाइन हैं।",

		"notify.offline":         "कनेक्शन टूट गया। ऑफ़लाइन मोड चालू।",
		"notify.online":          "फिर से ऑनलाइन। मौसम और मंडी भाव अपडेट हो रहे हैं।",
		"notify.toggle_rejected": "ऑनलाइन मोड चालू नहीं हो सकता: नेटवर्क कनेक्शन नहीं है।",
		"notify.mode_online":     "ऑनलाइन मोड चालू।",
		"notify.mode_offline":    "ऑफ़लाइन मोड चालू। केवल सहेजे गए उत्तर दिखेंगे।",

		"greeting.morning":   "सुप्रभात",
		"greeting.afternoon": "नमस्कार",
		"greeting.evening":   "शुभ संध्या",
		"hero.subtitle":      "%s के लिए खेती सलाह",
		"season.kharif":      "खरीफ मौसम",
		"season.rabi":        "रबी मौसम",
		"season.zaid":        "जायद मौसम",

		"trend.rising":          "बढ़त",
		"trend.falling":         "गिरावट",
		"trend.stable":          "स्थिर",
		"prediction.band":       "मध्यम अनिश्चितता: मौसम या नीति की खबरों पर भाव कुछ प्रतिशत ऊपर-नीचे हो सकते हैं।",
		"prediction.disclaimer": "केवल अनुमान। वित्तीय सलाह नहीं।",

		"verdict.HOLD":          "रोकें",
		"verdict.SELL NOW":      "अभी बेचें",
		"verdict.SELL AT MSP":   "MSP पर बेचें",
		"verdict.SELL IN MANDI": "मंडी में बेचें",
		"verdict.MONITOR":       "नज़र रखें",

		"chat.no_results": "कोई सटीक परिणाम नहीं मिला। अपना सवाल दोबारा लिखें।",

		"reason.volatile_rise":      "भाव %.1f%% बढ़ने की उम्मीद है। बेहतर दाम का इंतजार करें।",
		"reason.volatile_drop":      "भाव %.1f%% गिर सकते हैं। मौजूदा स्टॉक बेच दें।",
		"reason.volatile_stable":    "भाव लगभग स्थिर (%+.1f%%)। रोज़ बाज़ार पर नज़र रखें।",
		"reason.msp_rising":         "भाव %.1f%% बढ़ रहे हैं। बेचने से पहले ऊंचे दाम का इंतजार करें।",
		"reason.msp_falling_at_msp": "बाज़ार भाव गिर रहा है। MSP (₹%.0f/क्विंटल) पर बेचकर पक्की आमदनी लें।",
		"reason.msp_falling_sell":   "भाव %.1f%% गिर रहे हैं। मौजूदा भाव ₹%.0f/क्विंटल MSP से ऊपर है।",
		"reason.above_msp":          "बाज़ार भाव ₹%.0f/क्विंटल MSP से %d%% ऊपर है। बेचने का अच्छा समय।",
		"reason.below_msp":          "बाज़ार MSP से नीचे है। ₹%.0f/क्विंटल पर सरकारी खरीद का लाभ लें।",
		"reason.near_msp":           "भाव MSP के पास स्थिर (%+.1f%%)। बेहतर मौके पर नज़र रखें।",
	},
}
