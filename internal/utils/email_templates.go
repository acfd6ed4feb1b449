package utils

import "html/template"

const receiptSubject = "Your PodReseller order receipt"

// receiptTemplate renders a models.Payment.
var receiptTemplate = template.Must(template.New("receipt").Funcs(template.FuncMap{
	"dollars": formatDollars,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Order receipt</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; background-color: #f5f5f5;">
    <table role="presentation" style="width: 100%; border-collapse: collapse; background-color: #f5f5f5;">
        <tr>
            <td style="padding: 40px 20px;">
                <table role="presentation" style="max-width: 600px; margin: 0 auto; background-color: #ffffff; border-radius: 12px; box-shadow: 0 4px 6px rgba(0,0,0,0.1);">
                    <!-- Header -->
                    <tr>
                        <td style="background: linear-gradient(135deg, #10b981 0%, #059669 100%); padding: 40px 30px; text-align: center; border-radius: 12px 12px 0 0;">
                            <h1 style="margin: 0; color: #ffffff; font-size: 28px; font-weight: 700;">Thank you for your order</h1>
                            <p style="margin: 12px 0 0 0; color: #ffffff; font-size: 16px; opacity: 0.95;">{{.Email}}</p>
                        </td>
                    </tr>

                    <!-- Summary -->
                    <tr>
                        <td style="padding: 30px;">
                            <table role="presentation" style="width: 100%; border-collapse: collapse;">
                                <tr>
                                    <td style="padding: 10px 0; color: #666666; font-size: 14px;">Amount paid</td>
                                    <td style="padding: 10px 0; color: #333333; font-size: 16px; font-weight: 600; text-align: right;">{{dollars .Amount}}</td>
                                </tr>
                                <tr>
                                    <td style="padding: 10px 0; color: #666666; font-size: 14px;">Items</td>
                                    <td style="padding: 10px 0; color: #333333; font-size: 16px; text-align: right;">{{len .CartIDs}}</td>
                                </tr>
                                {{if .TransactionID}}
                                <tr>
                                    <td style="padding: 10px 0; color: #666666; font-size: 14px;">Transaction</td>
                                    <td style="padding: 10px 0; color: #333333; font-size: 13px; font-family: monospace; text-align: right;">{{.TransactionID}}</td>
                                </tr>
                                {{end}}
                                {{if .Date}}
                                <tr>
                                    <td style="padding: 10px 0; color: #666666; font-size: 14px;">Date</td>
                                    <td style="padding: 10px 0; color: #333333; font-size: 14px; text-align: right;">{{.Date.Format "Jan 2, 2006 15:04 MST"}}</td>
                                </tr>
                                {{end}}
                            </table>
                        </td>
                    </tr>

                    <!-- Footer -->
                    <tr>
                        <td style="background-color: #f9fafb; padding: 25px 30px; text-align: center; border-radius: 0 0 12px 12px;">
                            <p style="margin: 0; color: #999999; font-size: 12px;">The PodReseller team</p>
                        </td>
                    </tr>
                </table>
            </td>
        </tr>
    </table>
</body>
</html>`))
