package legal

// Disclaimer must be accepted before a session may chat.
const Disclaimer = `
IMPORTANT DISCLAIMER

This system (LegalEase) is an AI-powered advisory tool designed to assist with understanding legal documents and compliance requirements.

This system is NOT a substitute for professional legal counsel. The information provided is:

- For educational and informational purposes only
- Not legal advice or opinion
- Not a replacement for consultation with qualified legal professionals
- Provided "as-is" without warranties of any kind

You should always consult with a licensed attorney for:

- Important legal decisions
- Legal document review and drafting
- Compliance matters affecting your business
- Any situation with legal or financial consequences

By using this system, you acknowledge and agree that you will not hold the developers, operators, or any related parties liable for any decisions made based on information provided by this tool.
`
