package bridge

import "regexp"

// Ordered from most to least specific context. Group 1 is the code.
var codePatterns = []*regexp.Regexp{
	// Chinese, keyword first: "验证码: 1234", "您的验证码 1234", "短信随机码 1234".
	regexp.MustCompile(`(?:(?:您的?)?(?:短信|手机|动态|本次|登录)?验证码|验证密码|短信随机码)\D*([0-9]{4,8})`),
	// Chinese, digits first: "1234 是您的验证码", "1234（动态验证码）".
	regexp.MustCompile(`([0-9]{4,8})\D{0,20}(?:登录|短信|手机|动态|一次性|本次|您的?)?验证码`),
	// English, keyword first: "code 1234", "OTP: 1234", "verification code 1234".
	regexp.MustCompile(`(?i)\b(?:verification\s*code|code|otp|verification)\b\D*([0-9]{4,8})`),
	// English, digits first: "9488 is your verification code".
	regexp.MustCompile(`(?i)([0-9]{4,8})\D{0,40}(?:is\s*your\s*(?:verification\s*code|otp|code))`),
}

// ExtractCode returns the first 4 to 8 digit verification code in text, or "".
func ExtractCode(text string) string {
	for _, re := range codePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if n := len(m[1]); n >= 4 && n <= 8 {
			return m[1]
		}
	}
	return ""
}
