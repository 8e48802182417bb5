package bot

const (
	greetingText = "Welcome!\n\nThis bot shows company figures from the shared spreadsheet as charts.\n\nTo continue, tap the button in the menu."

	failureText   = "Something went wrong. Please try again later."
	staleToast    = "The company list has changed. Please choose again."
	inactiveToast = "This button is no longer active."
	unknownText   = "Tap \"" + ShowCompaniesLabel + "\" to browse companies."
	limitedToast  = "Too many requests. Please slow down."
	adminOnlyText = "This command is available to the administrator only."
)
