package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowTokenGuide prints step-by-step instructions for finding the API token
func ShowTokenGuide(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintln(w, "📚 APIFY API TOKEN GUIDE")
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "goingviral starts Instagram scraping jobs on Apify and needs your API token.")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "🌐 STEP 1: Sign in to the Apify console")
	fmt.Fprintln(w, "   - Go to https://console.apify.com")
	fmt.Fprintln(w, "   - Create a free account if you do not have one")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "🔧 STEP 2: Open the integrations page")
	fmt.Fprintln(w, "   - Settings → API & Integrations")
	fmt.Fprintln(w, "   - Copy the 'Personal API token' (it starts with apify_api_)")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "🔑 STEP 3: Store it")
	fmt.Fprintln(w, "   goingviral auth set")
	fmt.Fprintln(w, "   or export APIFY_API_KEY=apify_api_...")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "💡 TIPS:")
	fmt.Fprintln(w, "   • Every fetch starts a paid actor run on your account")
	fmt.Fprintln(w, "   • Create a separate token per machine so you can revoke it alone")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "⚠️  SECURITY WARNING:")
	fmt.Fprintln(w, "   • The token gives FULL access to your Apify account")
	fmt.Fprintln(w, "   • NEVER commit it or share it")
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintln(w)
}

// ShowQuickGuide prints the condensed version for experienced users
func ShowQuickGuide(w io.Writer) {
	fmt.Fprintln(w, "\n🔑 Quick Guide: console.apify.com → Settings → API & Integrations → Personal API token")
	fmt.Fprintln(w, "   Type 'help' for detailed instructions")
}
