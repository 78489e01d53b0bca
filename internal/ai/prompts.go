package ai

// ExtractCodePrompt instructs the model to read the work order number off a
// photographed maintenance document
const ExtractCodePrompt = `
You are auditing aircraft maintenance paperwork.
Find the Work Order (WO) number or barcode value printed on this document.

### WHERE TO LOOK
- Usually at the top of the page or next to a barcode.
- Work order numbers start with 100, 101 or 200.

### STRICT RULES
1. Look for a numeric sequence of 7 to 10 digits.
2. Prefer numbers starting with 100, 101 or 200.
3. Ignore part numbers (P/N), serial numbers (S/N) and dates.
4. Answer ONLY with the digits found, no spaces or letters.
5. If you are not certain, answer null.
`
