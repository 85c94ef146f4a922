// README: Receipt mail templates.
package mail

import "text/template"

var funcs = template.FuncMap{
	"firstName": FirstName,
	"time":      FormatTime,
	"money":     FormatMoney,
}

var receiptForReceiver = template.Must(template.New("receiptForReceiver").Funcs(funcs).Parse(
	`Hej {{firstName .Receiver.Name}}

Din ordre er blevet leveret {{time .DeliveredAt}}.

Ordre: {{.Description}}
Leveret til: {{.DeliveryName}}
Leveringspris: {{money .DeliveryPrice}} kr.
Leveret af: {{.Deliverer.Name}}

Tak fordi du brugte Epsilon.
`))

var receiptForDeliverer = template.Must(template.New("receiptForDeliverer").Funcs(funcs).Parse(
	`Hej {{firstName .Deliverer.Name}}

Din levering til {{.Receiver.Name}} er gennemført {{time .DeliveredAt}}.

Ordre: {{.Description}}
Leveret til: {{.DeliveryName}}
Leveringspris: {{money .DeliveryPrice}} kr.

Tak fordi du leverer med Epsilon.
`))

var receiptForOperator = template.Must(template.New("receiptForOperator").Funcs(funcs).Parse(
	`Gennemført levering {{time .DeliveredAt}}

Ordre: {{.Description}}
Afhentet: {{.PickupName}}
Leveret: {{.DeliveryName}}
Pris: {{money .DeliveryPrice}} kr.

Modtager: {{.Receiver.Name}} / {{.Receiver.Mobile}} / {{.Receiver.Email}}
Leverandør: {{.Deliverer.Name}} / {{.Deliverer.Mobile}} / {{.Deliverer.Email}}
`))
