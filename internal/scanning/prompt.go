package scanning

// systemPrompt frames every request as structured receipt extraction.
const systemPrompt = `You are an expert at reading receipts and invoices. Read all text in the image carefully and answer with a single JSON object and nothing else.`

// receiptExtractPrompt is shared by all providers. The keys it asks for are
// the ones the extraction cascade reads.
const receiptExtractPrompt = `Analyze this receipt image and extract the following fields:

- merchant: the business or store name, usually at the top. Just the name.
- date: the transaction date exactly as printed (for example MM/DD/YYYY)
- total: the final total after line items, taxes and subtotals. This is usually the last "Total" or "Balance Due" amount on the receipt.
- model: any product model number or SKU, if visible
- store_number: the store address or location info

Return only a JSON object with these exact keys:
{
  "merchant": "business name or null",
  "date": "date or null",
  "total": "total amount or null",
  "model": "model/SKU or null",
  "store_number": "store address or null",
  "confidence_score": 85,
  "duplication_score": 0
}

confidence_score is an integer from 0 to 100 saying how sure you are of the fields you extracted. Leave duplication_score at 0.

Example for a receipt showing "Amici Conyers", "06/10/2018" and a total of "33.75":
{
  "merchant": "Amici Conyers",
  "date": "06/10/2018",
  "total": "33.75",
  "model": null,
  "store_number": "1805 Parker RD Suite C110",
  "confidence_score": 90,
  "duplication_score": 0
}

Do not wrap the JSON in markdown code blocks.`
